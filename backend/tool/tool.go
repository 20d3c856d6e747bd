package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/quill-cli/quill/backend/chat"
)

// Handler executes a tool against its raw JSON argument payload.
type Handler func(ctx context.Context, arguments string) (string, error)

type Tool struct {
	Name        string
	Description string
	Schema      any
	Handler     Handler
}

// NewTool builds a tool whose parameter schema is reflected from the
// input struct and whose handler decodes the argument payload before
// invoking fn. A malformed payload is reported as a dispatch error,
// never a crash.
func NewTool[T any](name, description string, fn func(ctx context.Context, input T) (string, error)) Tool {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var toolInput T
	inputSchema := reflector.Reflect(toolInput)
	paramSchema := map[string]any{
		"type":       "object",
		"properties": inputSchema.Properties,
	}

	if len(inputSchema.Required) > 0 {
		paramSchema["required"] = inputSchema.Required
	}

	handler := func(ctx context.Context, arguments string) (string, error) {
		var input T
		if err := json.Unmarshal([]byte(arguments), &input); err != nil {
			return "", fmt.Errorf("invalid JSON arguments for %s: %w", name, err)
		}
		return fn(ctx, input)
	}

	return Tool{
		Name:        name,
		Description: description,
		Schema:      paramSchema,
		Handler:     handler,
	}
}

// Spec converts the tool into the wire declaration sent to the model.
func (t Tool) Spec() chat.ToolSpec {
	return chat.ToolSpec{
		Type: "function",
		Function: chat.FunctionSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Schema,
		},
	}
}
