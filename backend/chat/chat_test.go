package chat_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/quill-cli/quill/backend/chat"
)

func newTestContext(t *testing.T, endpoint string) *chat.Context {
	t.Helper()

	client, err := chat.NewClient(endpoint, "test-key")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	configDir := t.TempDir()
	chatsDir := filepath.Join(t.TempDir(), "chats")

	ctx := chat.NewContext(configDir, chatsDir, client)
	ctx.SetModelName("test-model")
	return ctx
}

func TestAppendNormalEnforcesRoleAlternation(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t, "http://localhost:0")
	if err := ctx.LoadOrNewChat("alternation"); err != nil {
		t.Fatalf("failed to create chat: %v", err)
	}

	if err := ctx.AppendNormal(chat.RoleUser, chat.Simple("first")); err != nil {
		t.Fatalf("first user message should append: %v", err)
	}

	err := ctx.AppendNormal(chat.RoleUser, chat.Simple("second"))
	if err == nil {
		t.Fatal("expected two consecutive user messages to be rejected")
	}
	if !chat.IsKind(err, chat.ErrKindRoleAlternation) {
		t.Errorf("expected a role alternation error, got %v", err)
	}

	if err := ctx.AppendMessage(chat.NormalMessage(chat.RoleAssistant, chat.Simple("reply"))); err != nil {
		t.Fatalf("failed to append assistant message: %v", err)
	}
	if err := ctx.AppendNormal(chat.RoleUser, chat.Simple("second")); err != nil {
		t.Errorf("user message after assistant should append: %v", err)
	}
}

func TestAppendToolResponseSkipsAlternationCheck(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t, "http://localhost:0")
	if err := ctx.LoadOrNewChat("tool-response"); err != nil {
		t.Fatalf("failed to create chat: %v", err)
	}

	if err := ctx.AppendToolResponse(chat.RoleTool, "execute", "call_1", chat.Simple("a")); err != nil {
		t.Fatalf("first tool response failed: %v", err)
	}
	if err := ctx.AppendToolResponse(chat.RoleTool, "execute", "call_2", chat.Simple("b")); err != nil {
		t.Errorf("consecutive tool responses must be allowed: %v", err)
	}
}

func TestOldestPendingToolCallID(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t, "http://localhost:0")
	if err := ctx.LoadOrNewChat("pending"); err != nil {
		t.Fatalf("failed to create chat: %v", err)
	}

	id, err := ctx.OldestPendingToolCallID()
	if err != nil {
		t.Fatalf("pending lookup failed: %v", err)
	}
	if id != "" {
		t.Errorf("expected no pending tool call, got %q", id)
	}

	toolCall := func(id string) chat.ToolCall {
		return chat.ToolCall{ID: id, Type: "function", Function: chat.FunctionCall{Name: "execute", Arguments: "{}"}}
	}

	if err := ctx.AppendMessage(chat.ToolRequestMessage(chat.RoleAssistant, nil, []chat.ToolCall{toolCall("call_1"), toolCall("call_2")})); err != nil {
		t.Fatalf("failed to append tool request: %v", err)
	}
	if err := ctx.AppendMessage(chat.ToolRequestMessage(chat.RoleAssistant, nil, []chat.ToolCall{toolCall("call_3")})); err != nil {
		t.Fatalf("failed to append tool request: %v", err)
	}

	id, err = ctx.OldestPendingToolCallID()
	if err != nil {
		t.Fatalf("pending lookup failed: %v", err)
	}
	if id != "call_1" {
		t.Errorf("expected oldest pending id call_1, got %q", id)
	}

	// Answering a later call does not change the oldest pending one.
	if err := ctx.AppendToolResponse(chat.RoleTool, "execute", "call_2", chat.Simple("done")); err != nil {
		t.Fatalf("failed to append tool response: %v", err)
	}
	id, _ = ctx.OldestPendingToolCallID()
	if id != "call_1" {
		t.Errorf("expected call_1 still pending, got %q", id)
	}

	if err := ctx.AppendToolResponse(chat.RoleTool, "execute", "call_1", chat.Simple("done")); err != nil {
		t.Fatalf("failed to append tool response: %v", err)
	}
	id, _ = ctx.OldestPendingToolCallID()
	if id != "call_3" {
		t.Errorf("expected call_3 pending after call_1 answered, got %q", id)
	}
}

func TestLookupToolCall(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t, "http://localhost:0")
	if err := ctx.LoadOrNewChat("lookup"); err != nil {
		t.Fatalf("failed to create chat: %v", err)
	}

	want := chat.ToolCall{ID: "call_7", Type: "function", Function: chat.FunctionCall{Name: "read", Arguments: `{"path":"f"}`}}
	if err := ctx.AppendMessage(chat.ToolRequestMessage(chat.RoleAssistant, nil, []chat.ToolCall{want})); err != nil {
		t.Fatalf("failed to append tool request: %v", err)
	}

	got, err := ctx.LookupToolCall("call_7")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.Function.Name != "read" || got.Function.Arguments != `{"path":"f"}` {
		t.Errorf("unexpected tool call %+v", got)
	}

	_, err = ctx.LookupToolCall("missing")
	if err == nil {
		t.Fatal("expected an error for an unknown tool call id")
	}
	if !chat.IsKind(err, chat.ErrKindToolCallNotFound) {
		t.Errorf("expected a not-found error, got %v", err)
	}
}

func TestSaveSkippedWhenClean(t *testing.T) {
	t.Parallel()

	chatsDir := filepath.Join(t.TempDir(), "chats")
	client, _ := chat.NewClient("http://localhost:0", "k")
	ctx := chat.NewContext(t.TempDir(), chatsDir, client)
	ctx.SetModelName("m")

	if err := ctx.LoadOrNewChat("clean"); err != nil {
		t.Fatalf("failed to create chat: %v", err)
	}
	if err := ctx.AppendNormal(chat.RoleUser, chat.Simple("hi")); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := ctx.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	chatFile := filepath.Join(chatsDir, "clean.json")
	before, err := os.Stat(chatFile)
	if err != nil {
		t.Fatalf("chat file missing after save: %v", err)
	}

	// Reload and save again without modification: the file must not be
	// rewritten.
	if err := ctx.LoadChat("clean"); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if err := os.Chtimes(chatFile, before.ModTime(), before.ModTime()); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}
	if err := ctx.Save(); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	after, err := os.Stat(chatFile)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("save rewrote an unmodified conversation")
	}
}

func TestLoadOrNewChatRoundTrip(t *testing.T) {
	t.Parallel()

	chatsDir := filepath.Join(t.TempDir(), "chats")
	client, _ := chat.NewClient("http://localhost:0", "k")
	ctx := chat.NewContext(t.TempDir(), chatsDir, client)
	ctx.SetModelName("test-model")

	if err := ctx.LoadOrNewChat("roundtrip"); err != nil {
		t.Fatalf("failed to create chat: %v", err)
	}
	if err := ctx.AppendNormal(chat.RoleUser, chat.Simple("persist me")); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := ctx.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded := chat.NewContext(t.TempDir(), chatsDir, client)
	if err := reloaded.LoadOrNewChat("roundtrip"); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	loaded, err := reloaded.Chat()
	if err != nil {
		t.Fatalf("chat missing after reload: %v", err)
	}
	last := loaded.Messages[len(loaded.Messages)-1]
	if last.Role != chat.RoleUser || last.Content == nil || last.Content.Text != "persist me" {
		t.Errorf("unexpected last message after reload: %+v", last)
	}
	if loaded.Model != "test-model" {
		t.Errorf("expected model carried into new chat, got %q", loaded.Model)
	}
}

func TestSubmitTurnStreaming(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer authorization, got %q", got)
		}
		if got := r.Header.Get("api-key"); got != "test-key" {
			t.Errorf("missing api-key header, got %q", got)
		}

		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" there\"}}]}\n")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer server.Close()

	ctx := newTestContext(t, server.URL)
	if err := ctx.LoadOrNewChat("submit"); err != nil {
		t.Fatalf("failed to create chat: %v", err)
	}
	if err := ctx.AppendNormal(chat.RoleUser, chat.Simple("hello")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	response, err := ctx.SubmitTurn()
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if response.Role != chat.RoleAssistant {
		t.Errorf("expected assistant response, got %q", response.Role)
	}
	if response.Content == nil || response.Content.Text != "Hi there" {
		t.Errorf("expected reconstructed text %q, got %+v", "Hi there", response.Content)
	}

	last, err := ctx.LastMessage()
	if err != nil {
		t.Fatalf("last message lookup failed: %v", err)
	}
	if last.Role != chat.RoleAssistant {
		t.Error("expected the response appended to the conversation")
	}
}

func TestSubmitTurnRejectsTrailingAssistant(t *testing.T) {
	t.Parallel()

	ctx := newTestContext(t, "http://localhost:0")
	if err := ctx.LoadOrNewChat("trailing"); err != nil {
		t.Fatalf("failed to create chat: %v", err)
	}
	if err := ctx.AppendMessage(chat.NormalMessage(chat.RoleAssistant, chat.Simple("already answered"))); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	_, err := ctx.SubmitTurn()
	if err == nil {
		t.Fatal("expected submit to fail when the last message is from the assistant")
	}
	if !chat.IsKind(err, chat.ErrKindLastMessageFromAssistant) {
		t.Errorf("expected last-message-from-assistant error, got %v", err)
	}
}

func TestSubmitTurnNonStreaming(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"plain reply"}}]}`)
	}))
	defer server.Close()

	ctx := newTestContext(t, server.URL)
	if err := ctx.LoadOrNewChat("plain"); err != nil {
		t.Fatalf("failed to create chat: %v", err)
	}
	if err := ctx.AppendNormal(chat.RoleUser, chat.Simple("hello")); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	response, err := ctx.SubmitTurn()
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if response.Content == nil || response.Content.Text != "plain reply" {
		t.Errorf("unexpected response %+v", response)
	}
}

func TestNewChatUsesTemplateFile(t *testing.T) {
	t.Parallel()

	configDir := t.TempDir()
	template := `{
		"model": "template-model",
		"messages": [{"role": "system", "content": "You are templated."}],
		"max_tokens": 512,
		"temperature": 0.1,
		"frequency_penalty": 0,
		"presence_penalty": 0,
		"top_p": 0.9,
		"stop": null
	}`
	if err := os.WriteFile(filepath.Join(configDir, "empty_chat.json"), []byte(template), 0644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}

	client, _ := chat.NewClient("http://localhost:0", "k")
	ctx := chat.NewContext(configDir, filepath.Join(t.TempDir(), "chats"), client)
	ctx.SetModelName("fallback-model")

	if err := ctx.NewChat("templated"); err != nil {
		t.Fatalf("new chat failed: %v", err)
	}

	created, err := ctx.Chat()
	if err != nil {
		t.Fatalf("chat missing: %v", err)
	}
	if created.Model != "template-model" {
		t.Errorf("expected model from template, got %q", created.Model)
	}
	if created.Messages[0].Content.Text != "You are templated." {
		t.Errorf("expected system prompt from template, got %+v", created.Messages[0].Content)
	}
}
