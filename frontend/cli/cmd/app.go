package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/quill-cli/quill/backend/chat"
	"github.com/quill-cli/quill/backend/tool"
	"github.com/quill-cli/quill/shared/keyring"
)

// appDirs are the per-user directories quill writes to. Each one can be
// overridden through the environment, which also keeps tests hermetic.
type appDirs struct {
	config string // empty_chat.json, prompt templates
	chats  string // one JSON document per chat id
	data   string // todo.db
	state  string // rotated logs
}

func resolveDirs() (appDirs, error) {
	dirs := appDirs{
		config: filepath.Join(xdg.ConfigHome, "quill"),
		data:   filepath.Join(xdg.DataHome, "quill"),
		state:  filepath.Join(xdg.StateHome, "quill"),
	}
	if override := os.Getenv("QUILL_CONFIG_DIR"); override != "" {
		dirs.config = override
	}
	if override := os.Getenv("QUILL_DATA_DIR"); override != "" {
		dirs.data = override
	}
	if override := os.Getenv("QUILL_STATE_DIR"); override != "" {
		dirs.state = override
	}
	dirs.chats = filepath.Join(dirs.config, "chats")

	for _, dir := range []string{dirs.config, dirs.data, dirs.state} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return appDirs{}, err
		}
	}
	return dirs, nil
}

// endpointConfig is the resolved chat-completion endpoint. Two endpoint
// flavors are supported: Azure deployments (api-version query parameter)
// and any OpenAI-compatible server.
type endpointConfig struct {
	url    string
	apiKey string
	model  string
}

const defaultAzureAPIVersion = "2024-02-01"

func resolveEndpoint(secrets keyring.Provider) (*endpointConfig, error) {
	if base := os.Getenv("OAICOMPAT_API_BASE"); base != "" {
		apiKey, err := resolveAPIKey(secrets, "OAICOMPAT_API_KEY", "oaicompat_api_key")
		if err != nil {
			return nil, err
		}
		return &endpointConfig{
			url:    strings.TrimRight(base, "/") + "/chat/completions",
			apiKey: apiKey,
			model:  os.Getenv("OAICOMPAT_MODEL_NAME"),
		}, nil
	}

	if base := os.Getenv("AZURE_API_BASE"); base != "" {
		apiKey, err := resolveAPIKey(secrets, "AZURE_API_KEY", "azure_api_key")
		if err != nil {
			return nil, err
		}
		version := os.Getenv("AZURE_API_VERSION")
		if version == "" {
			version = defaultAzureAPIVersion
		}
		return &endpointConfig{
			url:    fmt.Sprintf("%s/chat/completions?api-version=%s", strings.TrimRight(base, "/"), version),
			apiKey: apiKey,
		}, nil
	}

	return nil, fmt.Errorf("no endpoint configured: set OAICOMPAT_API_BASE or AZURE_API_BASE")
}

// resolveAPIKey prefers the environment and falls back to the OS
// keyring under the quill service.
func resolveAPIKey(secrets keyring.Provider, envName, keyringKey string) (string, error) {
	if value := os.Getenv(envName); value != "" {
		return value, nil
	}

	value, err := secrets.Get(keyringKey)
	if err != nil {
		if errors.Is(err, &keyring.ErrSecretNotFound{}) {
			return "", fmt.Errorf("no API key found: set %s or store %q in the OS keyring", envName, keyringKey)
		}
		return "", err
	}
	return value, nil
}

// openChatContext wires a conversation against the configured endpoint.
// With network set to false no endpoint needs to be configured and the
// context can only mutate and persist the conversation.
func openChatContext(dirs appDirs, network, writeReqResp bool) (*chat.Context, error) {
	var client *chat.Client
	modelName := os.Getenv("OAICOMPAT_MODEL_NAME")

	if network {
		endpoint, err := resolveEndpoint(keyring.NewKeyringProvider())
		if err != nil {
			return nil, err
		}

		client, err = chat.NewClient(endpoint.url, endpoint.apiKey)
		if err != nil {
			return nil, err
		}
		client.WriteReqResp = writeReqResp
		modelName = endpoint.model
	}

	ctx := chat.NewContext(dirs.config, dirs.chats, client)
	ctx.SetModelName(modelName)
	return ctx, nil
}

// openDispatcher builds the full tool registry. The returned closer
// releases the todo store.
func openDispatcher(dirs appDirs) (*tool.Dispatcher, func(), error) {
	todos, err := tool.NewTodoStore(filepath.Join(dirs.data, "todo.db"))
	if err != nil {
		return nil, nil, err
	}

	dispatcher := tool.NewDispatcher(tool.DefaultTools(todos, tool.NewExecutor())...)
	return dispatcher, func() { todos.Close() }, nil
}
