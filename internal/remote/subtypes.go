package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"archcanvas/internal/domain"
)

// decodeSubtypes normalizes every subtype payload shape the service produces
// into SubtypeOptions:
//
//	["SQL", "NOSQL"]
//	{"subtypes": ["SQL", {"id": "NOSQL", "description": "..."}]}
//	{"subtypes": {"SQL": {"latency": 7}, "NOSQL": {...}}}
func decodeSubtypes(body []byte) ([]domain.SubtypeOption, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	if body[0] == '[' {
		return decodeSubtypeList(body)
	}

	var envelope struct {
		Subtypes json.RawMessage `json:"subtypes"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding subtypes: %w", err)
	}
	inner := bytes.TrimSpace(envelope.Subtypes)
	if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
		return nil, nil
	}
	if inner[0] == '[' {
		return decodeSubtypeList(inner)
	}
	return decodeSubtypeMap(inner)
}

func decodeSubtypeList(raw []byte) ([]domain.SubtypeOption, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decoding subtype list: %w", err)
	}

	opts := make([]domain.SubtypeOption, 0, len(items))
	for _, item := range items {
		opt, err := decodeSubtypeItem(item)
		if err != nil {
			return nil, err
		}
		if opt.ID != "" {
			opts = append(opts, opt)
		}
	}
	return opts, nil
}

func decodeSubtypeItem(item json.RawMessage) (domain.SubtypeOption, error) {
	var bare string
	if err := json.Unmarshal(item, &bare); err == nil {
		return domain.SubtypeOption{ID: bare, Name: bare}, nil
	}

	var obj struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Heuristics  json.RawMessage `json:"heuristics"`
	}
	if err := json.Unmarshal(item, &obj); err != nil {
		return domain.SubtypeOption{}, fmt.Errorf("decoding subtype item: %w", err)
	}
	opt := domain.SubtypeOption{
		ID:          obj.ID,
		Name:        obj.Name,
		Description: obj.Description,
		Heuristics:  obj.Heuristics,
	}
	if opt.ID == "" {
		opt.ID = obj.Name
	}
	if opt.Name == "" {
		opt.Name = opt.ID
	}
	return opt, nil
}

func decodeSubtypeMap(raw []byte) ([]domain.SubtypeOption, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding subtype map: %w", err)
	}

	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	opts := make([]domain.SubtypeOption, 0, len(ids))
	for _, id := range ids {
		opt := domain.SubtypeOption{ID: id, Name: id}
		if h := bytes.TrimSpace(m[id]); len(h) > 0 && !bytes.Equal(h, []byte("null")) {
			opt.Heuristics = m[id]
		}
		opts = append(opts, opt)
	}
	return opts, nil
}
