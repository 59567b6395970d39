package domain

import (
	"encoding/json"
	"sort"
)

// Score is one named heuristic value
type Score struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Scores extracts the numeric scores from an opaque heuristics payload for
// display. Payloads shaped as {"scores": {...}} and flat {"name": number}
// maps are understood; anything else yields nil.
func Scores(raw json.RawMessage) []Score {
	if len(raw) == 0 {
		return nil
	}

	var wrapped struct {
		Scores map[string]float64 `json:"scores"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Scores) > 0 {
		return sortedScores(wrapped.Scores)
	}

	var flat map[string]float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		return sortedScores(flat)
	}
	return nil
}

func sortedScores(m map[string]float64) []Score {
	scores := make([]Score, 0, len(m))
	for name, v := range m {
		scores = append(scores, Score{Name: name, Value: v})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Name < scores[j].Name })
	return scores
}
