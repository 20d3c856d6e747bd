package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxReadLines = 1000

type ReadInput struct {
	Path            string `json:"path" jsonschema:"description=File to read"`
	ShowLineNumbers bool   `json:"show_line_numbers,omitempty"`
	Offset          int    `json:"offset,omitempty" jsonschema:"description=1-based first line to read"`
	Limit           int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to read"`
}

type WriteInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Append  bool   `json:"append,omitempty"`
}

type WriteFileInput struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Overwrite bool   `json:"overwrite,omitempty"`
}

type EditInput struct {
	Path      string `json:"path"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

type MultiEditInput struct {
	Path  string          `json:"path"`
	Edits []EditOperation `json:"edits"`
}

type EditOperation struct {
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

type SearchReplaceInput struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

type ListFilesInput struct {
	Directory string `json:"directory,omitempty"`
}

func readFile(input ReadInput) (string, error) {
	content, err := os.ReadFile(input.Path)
	if err != nil {
		return "", err
	}

	start := input.Offset
	if start == 0 {
		start = 1
	}
	if start < 1 {
		return "", fmt.Errorf("offset must be >= 1")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = maxReadLines
	}

	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")

	startIdx := start - 1
	if startIdx > len(lines) {
		startIdx = len(lines)
	}
	endIdx := min(startIdx+limit, len(lines), startIdx+maxReadLines)

	var sb strings.Builder
	for i, line := range lines[startIdx:endIdx] {
		if input.ShowLineNumbers {
			sb.WriteString(fmt.Sprintf("%d: %s\n", startIdx+i+1, line))
		} else {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}

	return sb.String(), nil
}

func writeFile(input WriteInput) (string, error) {
	if input.Append {
		file, err := os.OpenFile(input.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return "", err
		}
		defer file.Close()

		if _, err := file.WriteString(input.Content); err != nil {
			return "", err
		}
	} else {
		if err := os.WriteFile(input.Path, []byte(input.Content), 0644); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%d bytes written", len(input.Content)), nil
}

// writeNewFile refuses to clobber an existing file unless asked, and
// creates missing parent directories.
func writeNewFile(input WriteFileInput) (string, error) {
	if _, err := os.Stat(input.Path); err == nil && !input.Overwrite {
		return "", fmt.Errorf("file %q already exists, set overwrite=true to overwrite it", input.Path)
	}

	if parent := filepath.Dir(input.Path); parent != "." && parent != "" {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return "", fmt.Errorf("failed to create parent directories: %w", err)
		}
	}

	if err := os.WriteFile(input.Path, []byte(input.Content), 0644); err != nil {
		return "", fmt.Errorf("failed to write file %q: %w", input.Path, err)
	}

	return fmt.Sprintf("Written %d bytes to %s", len(input.Content), input.Path), nil
}

func editFile(input EditInput) (string, error) {
	content, err := os.ReadFile(input.Path)
	if err != nil {
		return "", err
	}

	text := string(content)
	idx := strings.Index(text, input.OldString)
	if idx < 0 {
		return "", fmt.Errorf("edit failed: string %q not found", input.OldString)
	}
	text = text[:idx] + input.NewString + text[idx+len(input.OldString):]

	if err := os.WriteFile(input.Path, []byte(text), 0644); err != nil {
		return "", err
	}

	return "Edit applied successfully", nil
}

// multiEdit applies a sequence of replacements; if any old string is
// missing the file is left untouched.
func multiEdit(input MultiEditInput) (string, error) {
	content, err := os.ReadFile(input.Path)
	if err != nil {
		return "", err
	}

	text := string(content)
	for _, edit := range input.Edits {
		idx := strings.Index(text, edit.OldString)
		if idx < 0 {
			return "", fmt.Errorf("edit failed: string %q not found", edit.OldString)
		}
		text = text[:idx] + edit.NewString + text[idx+len(edit.OldString):]
	}

	if err := os.WriteFile(input.Path, []byte(text), 0644); err != nil {
		return "", err
	}

	return fmt.Sprintf("Applied %d edits successfully", len(input.Edits)), nil
}

func listFiles(input ListFilesInput) (string, error) {
	directory := input.Directory
	if directory == "" {
		directory = "."
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return strings.Join(names, "\n"), nil
}

// FileTools returns the file manipulation tools exposed to the model.
func FileTools() []Tool {
	return []Tool{
		NewTool("read", "Read a file, optionally a line range with line numbers", func(ctx context.Context, input ReadInput) (string, error) {
			return readFile(input)
		}),
		NewTool("write", "Write or append content to a file", func(ctx context.Context, input WriteInput) (string, error) {
			return writeFile(input)
		}),
		NewTool("write_file", "Create a file, refusing to overwrite unless asked", func(ctx context.Context, input WriteFileInput) (string, error) {
			return writeNewFile(input)
		}),
		NewTool("edit", "Replace the first occurrence of a string in a file", func(ctx context.Context, input EditInput) (string, error) {
			return editFile(input)
		}),
		NewTool("multiedit", "Apply a sequence of string replacements to a file", func(ctx context.Context, input MultiEditInput) (string, error) {
			return multiEdit(input)
		}),
		NewTool("search_replace", "Apply SEARCH/REPLACE blocks to a file", func(ctx context.Context, input SearchReplaceInput) (string, error) {
			return searchReplace(input)
		}),
		NewTool("list_files", "List the entries of a directory", func(ctx context.Context, input ListFilesInput) (string, error) {
			return listFiles(input)
		}),
	}
}
