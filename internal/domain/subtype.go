package domain

import "encoding/json"

// FallbackSubtype is offered when the subtype list cannot be fetched
const FallbackSubtype = "default"

// SubtypeOption is a normalized subtype entry from the remote service
type SubtypeOption struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Heuristics  json.RawMessage `json:"heuristics,omitempty"`
}

// DisplayName returns a human readable name ("IN_MEMORY" -> "In Memory")
func (o SubtypeOption) DisplayName() string {
	if o.Name != "" && o.Name != o.ID {
		return o.Name
	}
	return TitleWords(o.ID)
}

// SubtypeIDs returns the identifiers of opts in order
func SubtypeIDs(opts []SubtypeOption) []string {
	ids := make([]string, 0, len(opts))
	for _, o := range opts {
		ids = append(ids, o.ID)
	}
	return ids
}

// TitleWords turns an upper snake identifier into title-cased words
func TitleWords(s string) string {
	b := []byte(Words(s))
	upper := true
	for i, c := range b {
		switch {
		case c == ' ':
			upper = true
		case upper:
			if c >= 'a' && c <= 'z' {
				b[i] = c - 'a' + 'A'
			}
			upper = false
		default:
			if c >= 'A' && c <= 'Z' {
				b[i] = c - 'A' + 'a'
			}
		}
	}
	return string(b)
}
