// Package clipboard copies note text to the system clipboard.
package clipboard

import (
	"fmt"
	"strings"

	cb "github.com/atotto/clipboard"

	"studymate/transcriber"
)

// Available reports whether a clipboard utility was found.
func Available() bool { return !cb.Unsupported }

func Copy(text string) error {
	if cb.Unsupported {
		return fmt.Errorf("no clipboard utility available (install xclip, xsel or wl-clipboard)")
	}
	return cb.WriteAll(text)
}

func Read() (string, error) {
	return cb.ReadAll()
}

// Format renders notes the way they are copied: one note per paragraph,
// prefixed with its local timestamp.
func Format(notes ...transcriber.Note) string {
	var b strings.Builder
	for i, n := range notes {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s] %s", n.Time().Format("2006-01-02 15:04"), n.NoteContent)
	}
	return b.String()
}

func CopyNotes(notes ...transcriber.Note) error {
	return Copy(Format(notes...))
}
