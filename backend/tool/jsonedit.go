package tool

import (
	"context"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

type JSONSetInput struct {
	File  string `json:"file" jsonschema:"description=JSON file to modify"`
	Path  string `json:"path" jsonschema:"description=Dotted path in the document, array indices as key.0"`
	Value string `json:"value" jsonschema:"description=New value, parsed as JSON when valid and stored as a string otherwise"`
}

// SetJSONValue sets value at a dotted path inside document. A value
// that parses as JSON is spliced in raw; anything else becomes a JSON
// string, mirroring how the model tends to pass numbers and booleans.
func SetJSONValue(document, path, value string) (string, error) {
	if !gjson.Valid(document) {
		return "", fmt.Errorf("document is not valid JSON")
	}

	var result string
	var err error
	if gjson.Valid(value) {
		result, err = sjson.SetRaw(document, path, value)
	} else {
		result, err = sjson.Set(document, path, value)
	}
	if err != nil {
		return "", fmt.Errorf("failed to set %q: %w", path, err)
	}

	return string(pretty.Pretty([]byte(result))), nil
}

// SetJSONFileValue applies SetJSONValue to a file in place and returns
// the modified document.
func SetJSONFileValue(file, path, value string) (string, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}

	modified, err := SetJSONValue(string(content), path, value)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(file, []byte(modified), 0644); err != nil {
		return "", err
	}

	return modified, nil
}

func JSONTools() []Tool {
	return []Tool{
		NewTool("json_set", "Set a value at a path in a JSON file", func(ctx context.Context, input JSONSetInput) (string, error) {
			return SetJSONFileValue(input.File, input.Path, input.Value)
		}),
	}
}
