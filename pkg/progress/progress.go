// Package progress sizes mpb progress bars to the terminal.
package progress

import (
	"github.com/vbauerster/mpb"
	"golang.org/x/term"
	"os"
)

// DefaultWidth is used when out is not a terminal.
const DefaultWidth = 80

// Width returns the terminal width of out, or DefaultWidth.
func Width(out *os.File) int {
	width, _, err := term.GetSize(int(out.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}

// New returns a progress container drawing to out.
func New(out *os.File) *mpb.Progress {
	return mpb.New(mpb.WithWidth(Width(out)), mpb.WithOutput(out))
}
