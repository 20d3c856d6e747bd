package chat

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseStreamingTextOnly(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"delta":{"content":"Hi"}}]}`,
		`data: {"choices":[{"delta":{"content":" there"}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	}, "\n")

	message, err := parseStreamingResponse(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if message.Role != RoleAssistant {
		t.Errorf("expected assistant role, got %q", message.Role)
	}
	if message.Content == nil || message.Content.Text != "Hi there" {
		t.Errorf("expected content %q, got %+v", "Hi there", message.Content)
	}
	if message.ToolCalls != nil {
		t.Errorf("expected no tool calls, got %+v", message.ToolCalls)
	}
}

func TestParseStreamingToolCall(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"tool_calls":[{"id":"call_abc","type":"function","function":{"name":"execute","arguments":""}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"function":{"arguments":"{\"a\":"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"function":{"arguments":"1}"}}]}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		`data: [DONE]`,
	}, "\n")

	message, err := parseStreamingResponse(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	want := []ToolCall{{
		ID:   "call_abc",
		Type: "function",
		Function: FunctionCall{
			Name:      "execute",
			Arguments: `{"a":1}`,
		},
	}}
	if diff := cmp.Diff(want, message.ToolCalls); diff != "" {
		t.Errorf("unexpected tool calls (-want +got):\n%s", diff)
	}
	if message.Content != nil {
		t.Errorf("expected nil content, got %+v", message.Content)
	}
}

func TestParseStreamingTextAndToolCall(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"Let me check."}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"id":"call_1","type":"function","function":{"name":"read","arguments":"{\"path\":\"x\"}"}}]}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		`data: [DONE]`,
	}, "\n")

	message, err := parseStreamingResponse(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if message.Content == nil || message.Content.Text != "Let me check." {
		t.Errorf("expected text preserved alongside the tool call, got %+v", message.Content)
	}
	if len(message.ToolCalls) != 1 || message.ToolCalls[0].ID != "call_1" {
		t.Errorf("expected one tool call with id call_1, got %+v", message.ToolCalls)
	}
}

func TestParseStreamingIgnoresNoise(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		``,
		`: keep-alive comment`,
		`data: not-json`,
		`data: {"choices":[{"delta":{"content":"ok"}}]}`,
		`[DONE]`,
	}, "\n")

	message, err := parseStreamingResponse(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if message.Content == nil || message.Content.Text != "ok" {
		t.Errorf("expected content %q, got %+v", "ok", message.Content)
	}
}

func TestParseStreamingRejectsSecondToolCall(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"tool_calls":[{"id":"call_1","type":"function","function":{"name":"read","arguments":"{}"}}]},"finish_reason":"tool_calls"}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"id":"call_2","type":"function","function":{"name":"write","arguments":"{}"}}]},"finish_reason":"tool_calls"}]}`,
		`data: [DONE]`,
	}, "\n")

	_, err := parseStreamingResponse(body)
	if err == nil {
		t.Fatal("expected an error for two completed tool calls in one turn")
	}
	if !IsKind(err, ErrKindProtocolViolation) {
		t.Errorf("expected a protocol violation, got %v", err)
	}
}

func TestParseNonStreamingResponse(t *testing.T) {
	t.Parallel()

	body := `{
		"choices": [
			{
				"message": {
					"role": "assistant",
					"content": null,
					"tool_calls": [
						{"id": "call_9", "type": "function", "function": {"name": "execute", "arguments": "{\"command\":\"echo hi\"}"}}
					]
				},
				"finish_reason": "tool_calls"
			}
		]
	}`

	message, err := parseResponse(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if message.Role != RoleAssistant {
		t.Errorf("expected assistant role, got %q", message.Role)
	}
	if len(message.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(message.ToolCalls))
	}
	if got := message.ToolCalls[0].Function.Arguments; got != `{"command":"echo hi"}` {
		t.Errorf("arguments changed during parsing: %q", got)
	}
}

func TestParseNonStreamingMissingMessage(t *testing.T) {
	t.Parallel()

	if _, err := parseResponse(`{"choices":[]}`); err == nil {
		t.Error("expected an error when choices is empty")
	}
	if _, err := parseResponse(`not json`); err == nil {
		t.Error("expected an error for invalid JSON")
	}
}

func TestIsStreamingBody(t *testing.T) {
	t.Parallel()

	if !isStreamingBody("data: {}\ndata: [DONE]\n") {
		t.Error("expected SSE body to be detected as streaming")
	}
	if isStreamingBody(`{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`) {
		t.Error("expected plain JSON body to be detected as non-streaming")
	}
}
