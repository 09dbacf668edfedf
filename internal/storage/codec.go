package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"aviary/internal/model"
)

// Gallery payloads are stored as JSON text verbatim. The codec helpers
// bridge between the typed artifacts and the raw column values.

func EncodeAnimation(anim model.Animation) (json.RawMessage, error) {
	data, err := json.Marshal(anim)
	if err != nil {
		return nil, fmt.Errorf("encode animation %d: %w", anim.ID, err)
	}
	return data, nil
}

func DecodeAnimation(data json.RawMessage) (model.Animation, error) {
	var anim model.Animation
	if err := json.Unmarshal(data, &anim); err != nil {
		return model.Animation{}, fmt.Errorf("decode animation: %w", err)
	}
	return anim, nil
}

func EncodeStructure(structure model.CPPNStructure) (json.RawMessage, error) {
	data, err := json.Marshal(structure)
	if err != nil {
		return nil, fmt.Errorf("encode structure %d: %w", structure.GenomeID, err)
	}
	return data, nil
}

func DecodeStructure(data json.RawMessage) (model.CPPNStructure, error) {
	var structure model.CPPNStructure
	if err := json.Unmarshal(data, &structure); err != nil {
		return model.CPPNStructure{}, fmt.Errorf("decode structure: %w", err)
	}
	return structure, nil
}

// ValidatePayload rejects payloads that are empty or not valid JSON
// before they reach a backend.
func ValidatePayload(data json.RawMessage) error {
	if len(data) == 0 {
		return errors.New("payload is empty")
	}
	if !json.Valid(data) {
		return errors.New("payload is not valid JSON")
	}
	return nil
}
