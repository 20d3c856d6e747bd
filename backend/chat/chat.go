package chat

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/quill-cli/quill/shared/conv"
	"github.com/quill-cli/quill/shared/jsonfile"
)

// Chat is the request payload sent to the chat-completion endpoint. It
// doubles as the on-disk conversation format, one JSON document per
// chat id.
type Chat struct {
	Model            string     `json:"model"`
	Messages         []Message  `json:"messages"`
	Tools            []ToolSpec `json:"tools,omitempty"`
	MaxTokens        int        `json:"max_tokens"`
	Temperature      float64    `json:"temperature"`
	FrequencyPenalty int        `json:"frequency_penalty"`
	PresencePenalty  int        `json:"presence_penalty"`
	TopP             float64    `json:"top_p"`
	Stop             []string   `json:"stop"`
	Stream           *bool      `json:"stream,omitempty"`
}

// ToolSpec declares a callable function to the model.
type ToolSpec struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

type FunctionSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

func defaultChat(model string) *Chat {
	return &Chat{
		Model:       model,
		Messages:    []Message{NormalMessage(RoleSystem, Simple("You are a helpful assistant."))},
		MaxTokens:   4096,
		Temperature: 0.7,
		TopP:        0.95,
	}
}

// Context owns a single conversation for the lifetime of one
// invocation. It is the only mutator of the message log.
type Context struct {
	chat      *Chat
	chatID    string
	configDir string
	chatsDir  string
	modelName string
	dirty     bool
	client    *Client
}

func NewContext(configDir, chatsDir string, client *Client) *Context {
	return &Context{
		configDir: configDir,
		chatsDir:  chatsDir,
		dirty:     true,
		client:    client,
	}
}

func (c *Context) SetModelName(name string) {
	c.modelName = name
}

// Chat exposes the loaded conversation, mostly for display.
func (c *Context) Chat() (*Chat, error) {
	if c.chat == nil {
		return nil, Errorf(ErrKindOther, "no chat currently loaded")
	}
	return c.chat, nil
}

func (c *Context) chatFile(chatID string) string {
	return filepath.Join(c.chatsDir, chatID+".json")
}

// NewChat starts a fresh conversation from the empty_chat.json template
// in the config dir, falling back to a built-in template when the file
// does not exist.
func (c *Context) NewChat(chatID string) error {
	templateFile := filepath.Join(c.configDir, "empty_chat.json")
	chat, err := jsonfile.Read[*Chat](templateFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		chat = defaultChat(c.modelName)
	}

	if chat.Model == "" {
		chat.Model = c.modelName
	}

	if err := os.MkdirAll(c.chatsDir, 0755); err != nil {
		return err
	}

	c.chat = chat
	c.chatID = chatID
	c.dirty = true
	return nil
}

func (c *Context) LoadChat(chatID string) error {
	chat, err := jsonfile.Read[*Chat](c.chatFile(chatID))
	if err != nil {
		return err
	}

	c.chat = chat
	c.chatID = chatID
	c.dirty = false
	return nil
}

func (c *Context) LoadOrNewChat(chatID string) error {
	if err := c.LoadChat(chatID); err == nil {
		return nil
	}
	return c.NewChat(chatID)
}

// Save persists the conversation, skipped entirely when nothing changed
// since load.
func (c *Context) Save() error {
	if !c.dirty {
		return nil
	}
	if c.chat == nil || c.chatID == "" {
		return Errorf(ErrKindOther, "no chat loaded to save")
	}

	if err := jsonfile.Write(c.chatFile(c.chatID), c.chat); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// SetTools declares the callable functions sent with every request.
func (c *Context) SetTools(tools []ToolSpec) error {
	chat, err := c.Chat()
	if err != nil {
		return err
	}
	chat.Tools = tools
	return nil
}

// SetSystemPrompt replaces the content of the leading system message.
func (c *Context) SetSystemPrompt(prompt string) error {
	chat, err := c.Chat()
	if err != nil {
		return err
	}
	if len(chat.Messages) == 0 {
		return Errorf(ErrKindSystemPromptNotFound, "there are no messages")
	}
	if chat.Messages[0].Role != RoleSystem {
		return Errorf(ErrKindSystemPromptNotFound, "first message was not a system prompt")
	}

	chat.Messages[0].Content = Simple(prompt)
	c.dirty = true
	return nil
}

func (c *Context) LastMessage() (*Message, error) {
	chat, err := c.Chat()
	if err != nil {
		return nil, err
	}
	if len(chat.Messages) == 0 {
		return nil, Errorf(ErrKindNoMessages, "no messages in loaded chat")
	}
	return &chat.Messages[len(chat.Messages)-1], nil
}

// AppendMessage appends without invariant checks. Used for assistant
// turns coming back from the endpoint.
func (c *Context) AppendMessage(message Message) error {
	chat, err := c.Chat()
	if err != nil {
		return err
	}
	chat.Messages = append(chat.Messages, message)
	c.dirty = true
	return nil
}

// AppendNormal appends a plain message, rejecting two consecutive
// messages from the same role so user turns are never silently merged.
func (c *Context) AppendNormal(role string, content *Content) error {
	chat, err := c.Chat()
	if err != nil {
		return err
	}
	if len(chat.Messages) > 0 && chat.Messages[len(chat.Messages)-1].Role == role {
		return Errorf(ErrKindRoleAlternation, "last message was from same role %q", role)
	}

	chat.Messages = append(chat.Messages, NormalMessage(role, content))
	c.dirty = true
	return nil
}

// AppendToolResponse appends the answer to a pending tool call. Tool
// responses may follow any role, so no alternation check applies.
func (c *Context) AppendToolResponse(role, name, toolCallID string, content *Content) error {
	chat, err := c.Chat()
	if err != nil {
		return err
	}

	chat.Messages = append(chat.Messages, ToolResponseMessage(role, name, toolCallID, content))
	c.dirty = true
	return nil
}

// OldestPendingToolCallID walks the log in order, collecting emitted
// tool-call ids and striking out answered ones, and returns the first
// id still outstanding. An empty id means no tool call is pending.
func (c *Context) OldestPendingToolCallID() (string, error) {
	chat, err := c.Chat()
	if err != nil {
		return "", Errorf(ErrKindNoMessages, "no messages")
	}

	var pending []string
	for _, message := range chat.Messages {
		for _, toolCall := range message.ToolCalls {
			pending = append(pending, toolCall.ID)
		}
		if message.ToolCallID != "" {
			for i, id := range pending {
				if id == message.ToolCallID {
					pending = append(pending[:i], pending[i+1:]...)
					break
				}
			}
		}
	}

	if len(pending) == 0 {
		return "", nil
	}
	return pending[0], nil
}

// LookupToolCall finds the tool call with the given id in any assistant
// message.
func (c *Context) LookupToolCall(toolCallID string) (*ToolCall, error) {
	chat, err := c.Chat()
	if err != nil {
		return nil, Errorf(ErrKindNoMessages, "no messages")
	}

	for i := range chat.Messages {
		for j := range chat.Messages[i].ToolCalls {
			if chat.Messages[i].ToolCalls[j].ID == toolCallID {
				return &chat.Messages[i].ToolCalls[j], nil
			}
		}
	}

	return nil, Errorf(ErrKindToolCallNotFound, "tool call %q not found", toolCallID)
}

// SubmitTurn sends the conversation to the endpoint, reconstructs the
// assistant turn from the response, appends it, and returns it.
func (c *Context) SubmitTurn() (*Message, error) {
	last, err := c.LastMessage()
	if err != nil {
		return nil, err
	}
	if last.Role == RoleAssistant {
		return nil, Errorf(ErrKindLastMessageFromAssistant, "last message was from the assistant")
	}

	chat, err := c.Chat()
	if err != nil {
		return nil, err
	}

	chat.Stream = conv.Ptr(true)

	body, err := c.client.Complete(chat)
	if err != nil {
		return nil, err
	}

	var response *Message
	if isStreamingBody(body) {
		response, err = parseStreamingResponse(body)
	} else {
		response, err = parseResponse(body)
	}
	if err != nil {
		return nil, err
	}

	if err := c.AppendMessage(*response); err != nil {
		return nil, err
	}
	return response, nil
}
