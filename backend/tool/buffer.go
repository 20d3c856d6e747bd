package tool

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxBufferedLines = 128
	maxLineLength    = 256
)

type streamKind string

const (
	streamStdout streamKind = "stdout"
	streamStderr streamKind = "stderr"
)

type timedLine struct {
	at     time.Time
	stream streamKind
	text   string
}

// lineBuffer holds the most recent output lines of a running command.
// Lines are truncated to maxLine bytes and the oldest entry is evicted
// once maxLines is reached, so a chatty command cannot exhaust memory.
type lineBuffer struct {
	maxLines int
	maxLine  int
	entries  []timedLine
}

func newLineBuffer(maxLines, maxLine int) *lineBuffer {
	return &lineBuffer{
		maxLines: maxLines,
		maxLine:  maxLine,
	}
}

func (b *lineBuffer) push(line timedLine) {
	if len(line.text) > b.maxLine {
		line.text = line.text[:b.maxLine]
	}

	if len(b.entries) == b.maxLines {
		b.entries = b.entries[1:]
	}

	b.entries = append(b.entries, line)
}

func (b *lineBuffer) len() int {
	return len(b.entries)
}

// render joins the buffered lines, each prefixed with its signed
// millisecond offset from origin. Offsets can be negative when a line
// was captured before origin due to pipe buffering.
func (b *lineBuffer) render(origin time.Time) string {
	lines := make([]string, 0, len(b.entries))
	for _, entry := range b.entries {
		millis := entry.at.Sub(origin).Milliseconds()
		lines = append(lines, fmt.Sprintf("%5d| %s", millis, entry.text))
	}
	return strings.Join(lines, "\n")
}
