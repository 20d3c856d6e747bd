package chat

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"
)

// parseStreamingResponse reconstructs one assistant turn from an
// accumulated SSE body. Each `data: <json>` frame carries an
// incremental delta for the first choice: text fragments are
// concatenated, tool-call fragments are merged by id/type/name with
// their argument strings appended in arrival order, and a
// `finish_reason` of "tool_calls" seals the in-progress call.
func parseStreamingResponse(body string) (*Message, error) {
	var text strings.Builder
	var toolCalls []ToolCall
	var current ToolCall

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == doneMarker || !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		data := strings.TrimPrefix(line, dataPrefix)
		if data == doneMarker {
			continue
		}
		if !gjson.Valid(data) {
			continue
		}

		frame := gjson.Parse(data)
		choice := frame.Get("choices.0")
		if !choice.Exists() {
			continue
		}

		delta := choice.Get("delta")
		if content := delta.Get("content"); content.Type == gjson.String {
			text.WriteString(content.String())
		}

		delta.Get("tool_calls").ForEach(func(_, fragment gjson.Result) bool {
			if id := fragment.Get("id"); id.Type == gjson.String {
				current.ID = id.String()
			}
			if toolType := fragment.Get("type"); toolType.Type == gjson.String {
				current.Type = toolType.String()
			}
			if name := fragment.Get("function.name"); name.Type == gjson.String {
				current.Function.Name = name.String()
			}
			if args := fragment.Get("function.arguments"); args.Type == gjson.String {
				current.Function.Arguments += args.String()
			}
			return true
		})

		if choice.Get("finish_reason").String() == "tool_calls" {
			toolCalls = append(toolCalls, current)
			current = ToolCall{}
		}
	}

	if len(toolCalls) > 1 {
		return nil, Errorf(ErrKindProtocolViolation, "turn completed %d tool calls, expected at most one", len(toolCalls))
	}

	message := &Message{Role: RoleAssistant, ToolCalls: toolCalls}
	if text.Len() > 0 {
		message.Content = Simple(text.String())
	}
	return message, nil
}

// parseResponse extracts choices[0].message from a complete,
// non-streaming response object.
func parseResponse(body string) (*Message, error) {
	if !gjson.Valid(body) {
		return nil, Errorf(ErrKindProtocolViolation, "response is not valid JSON")
	}

	raw := gjson.Get(body, "choices.0.message")
	if !raw.Exists() {
		return nil, Errorf(ErrKindProtocolViolation, "no message in choices element 0")
	}

	var message Message
	if err := json.Unmarshal([]byte(raw.Raw), &message); err != nil {
		return nil, Wrap(ErrKindProtocolViolation, err, "malformed message in response")
	}

	return &message, nil
}
