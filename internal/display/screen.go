package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/logrusorgru/aurora"
	"github.com/mattn/go-isatty"
)

// #region constants
const (
	Cols = 16 // characters per row
	Rows = 8
)
// #endregion constants

// #region screen
// Screen is the shared text display. The main loop and asynchronous status
// messages both write to it, so every write holds mu for the duration of
// that write only.
type Screen struct {
	mu   sync.Mutex
	out  io.Writer
	au   aurora.Aurora
	rows [Rows]string
}

// NewScreen renders to out, with color when out is a terminal.
func NewScreen(out io.Writer) *Screen {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Screen{out: out, au: aurora.NewAurora(color)}
}

// Show clears the screen and wraps msg over as many rows as it needs,
// from row 0 down.
func (s *Screen) Show(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = [Rows]string{}
	for i := 0; i < Rows && i*Cols < len(msg); i++ {
		end := min((i+1)*Cols, len(msg))
		s.rows[i] = msg[i*Cols : end]
	}
	s.render(-1)
}

// ShowRow overwrites a single row, truncated to Cols. Rows outside the
// screen are ignored.
func (s *Screen) ShowRow(msg string, row int) {
	if row < 0 || row >= Rows {
		return
	}
	if len(msg) > Cols {
		msg = msg[:Cols]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row] = msg
	s.render(row)
}

// Lines returns a copy of the current frame.
func (s *Screen) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, Rows)
	copy(out, s.rows[:])
	return out
}

// render writes one row, or the whole non-empty frame when row is -1.
// Caller holds mu.
func (s *Screen) render(row int) {
	if s.out == nil {
		return
	}
	if row >= 0 {
		fmt.Fprintf(s.out, "%s %s\n", s.au.Gray(12, fmt.Sprintf("%d|", row)), s.au.Cyan(pad(s.rows[row])))
		return
	}
	for i, line := range s.rows {
		if line == "" {
			continue
		}
		fmt.Fprintf(s.out, "%s %s\n", s.au.Gray(12, fmt.Sprintf("%d|", i)), s.au.Bold(pad(line)))
	}
}

func pad(line string) string {
	return line + strings.Repeat(" ", Cols-len(line))
}
// #endregion screen
