package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in the conversation log. Name and ToolCallID are
// set only on tool-response messages, ToolCalls only on assistant
// messages that request a tool invocation.
type Message struct {
	Role       string     `json:"role"`
	Content    *Content   `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name string `json:"name"`
	// Arguments is an opaque JSON-encoded string, assembled
	// incrementally during streaming.
	Arguments string `json:"arguments"`
}

func NormalMessage(role string, content *Content) Message {
	return Message{Role: role, Content: content}
}

func ToolRequestMessage(role string, content *Content, toolCalls []ToolCall) Message {
	return Message{Role: role, Content: content, ToolCalls: toolCalls}
}

func ToolResponseMessage(role, name, toolCallID string, content *Content) Message {
	return Message{Role: role, Name: name, ToolCallID: toolCallID, Content: content}
}

// HumanReadable renders the message for terminal display.
func (m *Message) HumanReadable() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n", m.Role))
	if m.Content != nil {
		if m.Content.IsSimple() {
			sb.WriteString(m.Content.Text + "\n")
		} else {
			for _, part := range m.Content.Parts {
				switch part.Type {
				case ContentPartText:
					sb.WriteString(part.Text)
				case ContentPartImageURL:
					sb.WriteString(fmt.Sprintf("Image (%d bytes)", len(part.ImageURL.URL)))
				}
			}
		}
	}
	for _, toolCall := range m.ToolCalls {
		sb.WriteString(fmt.Sprintf("```%s\n%s\n```", toolCall.Function.Name, toolCall.Function.Arguments))
	}

	return sb.String()
}

// Content is either a plain string ("simple") or a list of typed parts
// ("multi"). The two forms are distinct on the wire: simple serializes
// as a JSON string, multi as an array, even when the array holds a
// single text part.
type Content struct {
	Text  string
	Parts []ContentPart
}

const (
	ContentPartText     = "text"
	ContentPartImageURL = "image_url"
)

type ContentPart struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	ImageURL *ImageURLContent `json:"image_url,omitempty"`
}

type ImageURLContent struct {
	URL string `json:"url"`
}

func Simple(text string) *Content {
	return &Content{Text: text}
}

func Multi(parts ...ContentPart) *Content {
	return &Content{Parts: parts}
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentPartText, Text: text}
}

func ImagePart(url string) ContentPart {
	return ContentPart{Type: ContentPartImageURL, ImageURL: &ImageURLContent{URL: url}}
}

func (c *Content) IsSimple() bool {
	return c.Parts == nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Parts)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.Text = text
		c.Parts = nil
		return nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content is neither a string nor a part list: %w", err)
	}

	c.Text = ""
	c.Parts = parts
	return nil
}
