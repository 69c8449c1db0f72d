package transcript

import (
	"strings"
	"testing"
	"time"

	"github.com/sleekcode-io/ibot/core/llms"
)

func TestAppendRecordsElapsedGap(t *testing.T) {
	tr := New()

	first := tr.Append(llms.SpeakerUser, "hello")
	if first != 0 {
		t.Fatalf("expected first index 0, got %d", first)
	}

	entries := tr.Entries()
	if entries[0].ElapsedSinceLast != 0 {
		t.Fatalf("expected no gap on the first entry, got %v", entries[0].ElapsedSinceLast)
	}

	tr.lastAt = time.Now().Add(-3 * time.Minute)
	tr.Append(llms.SpeakerBot, "welcome back")

	entries = tr.Entries()
	if entries[1].ElapsedSinceLast < 3*time.Minute {
		t.Fatalf("expected at least a 3 minute gap, got %v", entries[1].ElapsedSinceLast)
	}
}

func TestMarkSpokenIsOneShot(t *testing.T) {
	tr := New()
	index := tr.Append(llms.SpeakerBot, "good morning")

	if !tr.MarkSpoken(index) {
		t.Fatalf("expected first mark to report the entry as unspoken")
	}
	if tr.MarkSpoken(index) {
		t.Fatalf("expected second mark to report the entry as already spoken")
	}
	if tr.MarkSpoken(42) {
		t.Fatalf("expected out-of-range mark to be rejected")
	}
}

func TestMarkDisplayedIsOneShot(t *testing.T) {
	tr := New()
	index := tr.Append(llms.SpeakerUser, "hi")

	if !tr.MarkDisplayed(index) {
		t.Fatalf("expected first mark to report the entry as undisplayed")
	}
	if tr.MarkDisplayed(index) {
		t.Fatalf("expected second mark to report the entry as already displayed")
	}
}

func TestEntriesReturnsIndependentCopy(t *testing.T) {
	tr := New()
	tr.Append(llms.SpeakerUser, "original")

	entries := tr.Entries()
	entries[0].Text = "mutated"

	if got := tr.Entries()[0].Text; got != "original" {
		t.Fatalf("expected the transcript to be unaffected by copy mutation, got %q", got)
	}
}

func TestExportRendersGapMarkers(t *testing.T) {
	tr := New()
	tr.Append(llms.SpeakerUser, "hello")
	tr.lastAt = time.Now().Add(-5 * time.Minute)
	tr.Append(llms.SpeakerBot, "hello again")

	export := tr.Export()
	if !strings.Contains(export, "user: hello\n") {
		t.Fatalf("expected user line in export, got %q", export)
	}
	if !strings.Contains(export, "minutes later") {
		t.Fatalf("expected a gap marker in export, got %q", export)
	}
	if !strings.Contains(export, "bot: hello again\n") {
		t.Fatalf("expected bot line in export, got %q", export)
	}
}
