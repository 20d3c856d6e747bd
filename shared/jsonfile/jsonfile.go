package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
)

// Read loads and decodes a JSON document from path.
func Read[T any](path string) (T, error) {
	var value T

	content, err := os.ReadFile(path)
	if err != nil {
		return value, err
	}

	if err := json.Unmarshal(content, &value); err != nil {
		return value, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return value, nil
}

// Write encodes value as indented JSON and writes it to path, replacing
// any existing file.
func Write[T any](path string, value T) error {
	content, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	return os.WriteFile(path, append(content, '\n'), 0644)
}
