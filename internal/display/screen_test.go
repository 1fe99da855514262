package display

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestShowWrapsAtSixteenColumns(t *testing.T) {
	var buf bytes.Buffer
	s := NewScreen(&buf)
	s.Show("Not enough Memory. Delete unnecessary NXT files")

	lines := s.Lines()
	want := []string{"Not enough Memor", "y. Delete unnece", "ssary NXT files", ""}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("row %d: expected %q, got %q", i, w, lines[i])
		}
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("non-terminal output must not carry color codes")
	}
}

func TestShowClearsPreviousFrame(t *testing.T) {
	s := NewScreen(nil)
	s.ShowRow("step 10", 5)
	s.Show("hi")
	if got := s.Lines()[5]; got != "" {
		t.Fatalf("expected row 5 cleared, got %q", got)
	}
}

func TestShowRowTruncatesAndIgnoresBadRows(t *testing.T) {
	s := NewScreen(nil)
	s.ShowRow("-- PAUSED -- and more text", 0)
	if got := s.Lines()[0]; got != "-- PAUSED -- and" {
		t.Fatalf("unexpected row 0 %q", got)
	}
	s.ShowRow("x", Rows)
	s.ShowRow("x", -1)
	for i, l := range s.Lines()[1:] {
		if l != "" {
			t.Fatalf("row %d unexpectedly written: %q", i+1, l)
		}
	}
}

func TestConcurrentWritesKeepRowsWhole(t *testing.T) {
	var buf bytes.Buffer
	s := NewScreen(&buf)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.ShowRow(strings.Repeat(string(rune('a'+row)), Cols), row)
			}
		}(w)
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		text := line[strings.Index(line, "|")+2:]
		if strings.Count(text, text[:1]) != Cols {
			t.Fatalf("interleaved write: %q", line)
		}
	}
}
