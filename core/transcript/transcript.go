// Package transcript keeps the append-ordered record of every conversational
// event. The transcript is independent of any single session and outlives
// role switches; it backs both display and export.
package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/copier"

	"github.com/sleekcode-io/ibot/core/llms"
)

// Entry is one recorded conversational event. Entries are added exactly once
// per completed turn side and never mutated afterwards, except for the
// one-shot Spoken/Displayed flags.
type Entry struct {
	Speaker llms.Speaker
	Text    string
	// ElapsedSinceLast is the gap to the previous entry, used to render
	// "N minutes later" markers.
	ElapsedSinceLast time.Duration

	// Spoken and Displayed flip once when the entry has been sent to the
	// playback adapter or rendered, so reprocessing the transcript never
	// re-speaks or re-renders an entry.
	Spoken    bool
	Displayed bool
}

// Transcript is single-writer: only the turn orchestrator appends or flips
// flags, so no locking is done here.
type Transcript struct {
	entries []Entry
	lastAt  time.Time
}

func New() *Transcript {
	return &Transcript{}
}

// Append records one entry and returns its index.
func (t *Transcript) Append(speaker llms.Speaker, text string) int {
	now := time.Now()

	var elapsed time.Duration
	if !t.lastAt.IsZero() {
		elapsed = now.Sub(t.lastAt)
	}
	t.lastAt = now

	t.entries = append(t.entries, Entry{
		Speaker:          speaker,
		Text:             text,
		ElapsedSinceLast: elapsed,
	})
	return len(t.entries) - 1
}

// MarkSpoken flips the one-shot spoken flag. It reports whether the entry
// still needed speaking, so a caller toggling UI modes can use it as the
// speak-once gate.
func (t *Transcript) MarkSpoken(index int) bool {
	if index < 0 || index >= len(t.entries) {
		return false
	}
	if t.entries[index].Spoken {
		return false
	}
	t.entries[index].Spoken = true
	return true
}

// MarkDisplayed flips the one-shot displayed flag, reporting whether the
// entry still needed rendering.
func (t *Transcript) MarkDisplayed(index int) bool {
	if index < 0 || index >= len(t.entries) {
		return false
	}
	if t.entries[index].Displayed {
		return false
	}
	t.entries[index].Displayed = true
	return true
}

// Len reports the number of entries.
func (t *Transcript) Len() int {
	return len(t.entries)
}

// Entry returns a copy of the entry at the given index.
func (t *Transcript) Entry(index int) (Entry, bool) {
	if index < 0 || index >= len(t.entries) {
		return Entry{}, false
	}
	return t.entries[index], true
}

// Entries returns a deep copy of all entries.
func (t *Transcript) Entries() []Entry {
	var entries []Entry
	copier.Copy(&entries, &t.entries)
	return entries
}

// gapMarkerThreshold is the smallest gap rendered as a "N minutes later"
// marker in the exported transcript.
const gapMarkerThreshold = time.Minute

// Export renders the downloadable text form of the transcript.
func (t *Transcript) Export() string {
	var b strings.Builder
	for _, entry := range t.entries {
		if entry.ElapsedSinceLast >= gapMarkerThreshold {
			minutes := int(entry.ElapsedSinceLast.Minutes())
			fmt.Fprintf(&b, "--- %d minute", minutes)
			if minutes != 1 {
				b.WriteString("s")
			}
			b.WriteString(" later ---\n")
		}
		fmt.Fprintf(&b, "%s: %s\n", entry.Speaker, entry.Text)
	}
	return b.String()
}
