package sound

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// #region events
// Event is a discrete occurrence the operator hears about.
type Event string

const (
	EventStart        Event = "start"
	EventEnd          Event = "end"
	EventError        Event = "error"
	EventExploitation Event = "exploitation"
	EventStep         Event = "step"
	EventOptimalStep  Event = "optimal_step"
	EventPause        Event = "pause"
	EventDebug        Event = "debug"
)
// #endregion events

// #region notes
// Note frequencies in Hz.
const (
	C5 = 523
	D5 = 587
	E5 = 659
	G5 = 784
	B5 = 988
	B6 = 1976
)

// Note lengths.
const (
	Half    = 250 * time.Millisecond
	Quarter = 125 * time.Millisecond
	Eighth  = 63 * time.Millisecond
	Blip    = 10 * time.Millisecond
)

// Tone is one note followed by a pause before the next.
type Tone struct {
	Freq     int
	Duration time.Duration
	Gap      time.Duration
}

var melodies = map[Event][]Tone{
	EventStart:        {{C5, Quarter, Eighth}, {E5, Quarter, Eighth}, {G5, Quarter, Eighth}},
	EventEnd:          {{E5, Half, Half}, {G5, Half, Half}, {B5, Half, Half}},
	EventError:        {{E5, Quarter, Half}, {E5, Quarter, Half}},
	EventExploitation: {{B6, Blip, 0}},
	EventStep:         {{E5, Blip, 0}},
	EventOptimalStep:  {{B5, Eighth, 0}},
	EventPause:        {{B5, Quarter, Half}, {B5, Quarter, Half}},
	EventDebug:        {{C5, Quarter, Half}, {D5, Quarter, Half}},
}

// Melody returns the tones played for e.
func Melody(e Event) []Tone {
	return melodies[e]
}
// #endregion notes

// #region player
// Player emits audible feedback. Play must not block the control loop for
// longer than the melody itself.
type Player interface {
	Play(e Event)
}

// LogPlayer writes each melody to the standard logger instead of a speaker.
// Step blips are skipped unless Verbose is set.
type LogPlayer struct {
	Verbose bool
}

func (p LogPlayer) Play(e Event) {
	if (e == EventStep || e == EventOptimalStep) && !p.Verbose {
		return
	}
	tones := Melody(e)
	parts := make([]string, len(tones))
	for i, t := range tones {
		parts[i] = fmt.Sprintf("%dHz/%s", t.Freq, t.Duration)
	}
	log.Printf("[SOUND] %s %s", e, strings.Join(parts, " "))
}

// Recorder keeps every event it is asked to play.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Play(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of what was played.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many times e was played.
func (r *Recorder) Count(e Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.events {
		if got == e {
			n++
		}
	}
	return n
}
// #endregion player
