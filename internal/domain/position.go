package domain

// Position is a point on the canvas
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
