package chat

import (
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// RenderPromptFile loads a system prompt template and renders it with
// the sprig function set. Data keys come from the environment so
// prompts can reference {{ .Env.HOME }} and friends.
func RenderPromptFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return RenderPrompt(string(content))
}

func RenderPrompt(text string) (string, error) {
	tmpl, err := template.New("prompt").Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return "", Wrap(ErrKindOther, err, "invalid prompt template")
	}

	env := map[string]string{}
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if ok {
			env[key] = value
		}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, map[string]any{"Env": env}); err != nil {
		return "", Wrap(ErrKindOther, err, "failed to render prompt template")
	}

	return sb.String(), nil
}
