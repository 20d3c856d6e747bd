package tool

import (
	"fmt"
	"os"
	"strings"
)

const (
	searchMarker  = "<<<<<<< SEARCH"
	separator     = "======="
	replaceMarker = ">>>>>>> REPLACE"
)

type searchReplaceBlock struct {
	search  string
	replace string
}

// searchReplace applies conflict-marker style SEARCH/REPLACE blocks to
// a file and returns a report of what changed.
func searchReplace(input SearchReplaceInput) (string, error) {
	blocks, err := parseBlocks(input.Content)
	if err != nil {
		return "", err
	}

	return applyBlocks(input.FilePath, blocks, input.Content)
}

func parseBlocks(content string) ([]searchReplaceBlock, error) {
	var blocks []searchReplaceBlock
	remaining := content

	for {
		start := strings.Index(remaining, searchMarker)
		if start < 0 {
			break
		}

		afterStart := remaining[start+len(searchMarker):]

		sep := strings.Index(afterStart, separator)
		if sep < 0 {
			return nil, fmt.Errorf("missing %s separator", separator)
		}

		end := strings.Index(afterStart, replaceMarker)
		if end < 0 {
			return nil, fmt.Errorf("missing %s", replaceMarker)
		}

		blocks = append(blocks, searchReplaceBlock{
			search:  strings.TrimLeft(afterStart[:sep], "\n"),
			replace: strings.TrimLeft(afterStart[sep+len(separator):end], "\n"),
		})

		remaining = afterStart[end+len(replaceMarker):]
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("no SEARCH/REPLACE blocks found")
	}

	return blocks, nil
}

func applyBlocks(filePath string, blocks []searchReplaceBlock, originalContent string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	text := string(content)
	linesChanged := 0
	var warnings []string

	for _, block := range blocks {
		if !strings.Contains(text, block.search) {
			return "", fmt.Errorf("SEARCH block not found in file:\n%s", block.search)
		}

		searchLines := strings.Count(block.search, "\n")
		replaceLines := strings.Count(block.replace, "\n")
		if searchLines != replaceLines {
			warnings = append(warnings, fmt.Sprintf("Line count changed from %d to %d", searchLines, replaceLines))
		}

		linesChanged += searchLines
		text = strings.Replace(text, block.search, block.replace, 1)
	}

	if err := os.WriteFile(filePath, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	warningReport := "none"
	if len(warnings) > 0 {
		warningReport = strings.Join(warnings, "; ")
	}

	return fmt.Sprintf(
		"file: %s\nblocks_applied: %d\nlines_changed: %d\ncontent:\n%s\nwarnings: %s\n",
		filePath, len(blocks), linesChanged, strings.TrimRight(originalContent, "\n \t"), warningReport,
	), nil
}
