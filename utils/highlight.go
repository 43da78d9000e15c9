package utils

import (
	"io"
	"os"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/mattn/go-isatty"
)

// Highlight writes content through chroma using 256-colour terminal escapes.
func Highlight(w io.Writer, content string, language string, theme string) error {
	return quick.Highlight(w, content, language, "terminal256", theme)
}

// IsTerminal reports whether f is attached to an interactive terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
