package deepgram

import (
	"context"
	"testing"

	"github.com/sleekcode-io/ibot/core/speechtotext"
)

func transcriptMessage(text string, isFinal, speechFinal bool) []byte {
	msg := `{"type":"Results","is_final":` + boolString(isFinal) +
		`,"speech_final":` + boolString(speechFinal) +
		`,"channel":{"alternatives":[{"transcript":"` + text + `"}]}}`
	return []byte(msg)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestProcessMessageAccumulatesPartials(t *testing.T) {
	c := NewCaptureClient()

	var partials []string
	var finals []string
	options := speechtotext.CaptureOptions{
		PartialTextCallback:  func(text string) { partials = append(partials, text) },
		TurnCompleteCallback: func(text string) { finals = append(finals, text) },
	}

	c.processMessage(context.Background(), transcriptMessage("tell me", false, false), options)
	c.processMessage(context.Background(), transcriptMessage("tell me about", true, false), options)
	c.processMessage(context.Background(), transcriptMessage("yourself", true, true), options)

	if len(partials) != 3 {
		t.Fatalf("expected 3 partial updates, got %d", len(partials))
	}
	if partials[0] != "tell me" {
		t.Fatalf("expected interim fragment as first partial, got %q", partials[0])
	}
	if partials[2] != "tell me about yourself" {
		t.Fatalf("expected accumulated utterance, got %q", partials[2])
	}

	if len(finals) != 1 || finals[0] != "tell me about yourself" {
		t.Fatalf("expected one completed turn with the full utterance, got %v", finals)
	}
}

func TestProcessMessageUtteranceEndCompletesOpenSegment(t *testing.T) {
	c := NewCaptureClient()

	var finals []string
	options := speechtotext.CaptureOptions{
		TurnCompleteCallback: func(text string) { finals = append(finals, text) },
	}

	c.processMessage(context.Background(), transcriptMessage("short answer", true, false), options)
	c.processMessage(context.Background(), []byte(`{"type":"UtteranceEnd"}`), options)

	if len(finals) != 1 || finals[0] != "short answer" {
		t.Fatalf("expected the open segment to complete on utterance end, got %v", finals)
	}

	// A second utterance end with nothing accumulated must not fire again.
	c.processMessage(context.Background(), []byte(`{"type":"UtteranceEnd"}`), options)
	if len(finals) != 1 {
		t.Fatalf("expected no extra turn completion, got %v", finals)
	}
}

func TestProcessMessageIgnoresEmptyTranscripts(t *testing.T) {
	c := NewCaptureClient()

	calls := 0
	options := speechtotext.CaptureOptions{
		PartialTextCallback: func(string) { calls++ },
	}

	c.processMessage(context.Background(), transcriptMessage("", false, false), options)
	c.processMessage(context.Background(), transcriptMessage("   ", true, false), options)

	if calls != 0 {
		t.Fatalf("expected empty transcripts to be dropped, got %d callbacks", calls)
	}
}

func TestSendAudioWithoutStreamFails(t *testing.T) {
	c := NewCaptureClient()

	if err := c.SendAudio([]byte{0, 0}); err == nil {
		t.Fatalf("expected an error when the stream is not open")
	}
}
