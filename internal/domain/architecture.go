package domain

import "encoding/json"

// Architecture is the remote aggregate that components and links attach to
type Architecture struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EvaluationReport is the scored report returned by the remote evaluation
type EvaluationReport struct {
	ArchitectureID string          `json:"architecture_id"`
	Raw            json.RawMessage `json:"report"`
}

// ValidationReport is the result of validating a whole architecture
type ValidationReport struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
}
