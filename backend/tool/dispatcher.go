package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quill-cli/quill/backend/chat"
)

// Dispatcher routes a tool name plus JSON argument payload to the
// matching tool and returns its string result. Tool results feed back
// into the conversation as tool-response messages, closing the pairing
// with the tool call that requested them.
type Dispatcher struct {
	tools map[string]Tool
	order []string
}

func NewDispatcher(tools ...Tool) *Dispatcher {
	dispatcher := &Dispatcher{
		tools: make(map[string]Tool, len(tools)),
	}
	dispatcher.Register(tools...)
	return dispatcher
}

func (d *Dispatcher) Register(tools ...Tool) {
	for _, t := range tools {
		if _, exists := d.tools[t.Name]; !exists {
			d.order = append(d.order, t.Name)
		}
		d.tools[t.Name] = t
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, name, arguments string) (string, error) {
	t, ok := d.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown function: %s", name)
	}

	return t.Handler(ctx, arguments)
}

// Specs returns the wire declarations for every registered tool, in
// registration order.
func (d *Dispatcher) Specs() []chat.ToolSpec {
	specs := make([]chat.ToolSpec, 0, len(d.order))
	for _, name := range d.order {
		specs = append(specs, d.tools[name].Spec())
	}
	return specs
}

// DefaultTools assembles the full toolset: file manipulation, todo
// lists, JSON patching, and shell execution.
func DefaultTools(todos *TodoStore, executor *Executor) []Tool {
	tools := FileTools()
	tools = append(tools, TodoTools(todos)...)
	tools = append(tools, JSONTools()...)
	tools = append(tools, ExecuteTool(executor))
	return tools
}

// ExecuteTool wraps the command executor. The result is serialized to
// JSON so the model sees output, timed_out, and exit_code as one
// structured payload.
func ExecuteTool(executor *Executor) Tool {
	return NewTool("execute", "Execute a shell command and capture its output", func(ctx context.Context, input ExecuteInput) (string, error) {
		if input.Command == "" {
			return "", fmt.Errorf("command is required")
		}

		result, err := executor.Execute(ctx, input.Command)
		if err != nil {
			return "", err
		}

		encoded, err := json.Marshal(result)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	})
}
