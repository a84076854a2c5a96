package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/imputer/internal/transform"
)

// marshalTransform converts a transform to canonical JSON TEXT for storage.
func marshalTransform(tr *transform.FillNA) (string, error) {
	if tr == nil {
		return "", fmt.Errorf("marshal transform: nil transform")
	}
	data, err := tr.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal transform: %w", err)
	}
	return string(data), nil
}

// unmarshalTransform parses stored canonical JSON TEXT.
// Integers decode through json.Number, so values above 2^53 keep precision.
func unmarshalTransform(data string) (*transform.FillNA, error) {
	var tr transform.FillNA
	if err := json.Unmarshal([]byte(data), &tr); err != nil {
		return nil, fmt.Errorf("unmarshal transform: %w", err)
	}
	return &tr, nil
}
