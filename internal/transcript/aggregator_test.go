package transcript

import (
	"fmt"
	"testing"

	"github.com/Young6-101/ai-interview-assistant/internal/domain"
)

func TestIngestSameSpeakerNeverCommits(t *testing.T) {
	buf := &domain.Buffer{}

	for i := 0; i < 5; i++ {
		got := Ingest(buf, domain.SpeakerHR, fmt.Sprintf("part%d", i), int64(i))
		if got != nil {
			t.Fatalf("fragment %d committed unexpectedly: %+v", i, got)
		}
	}
	if buf.Text != "part0 part1 part2 part3 part4" {
		t.Fatalf("unexpected buffer text: %q", buf.Text)
	}
	if buf.StartTimestamp != 0 || buf.LastActivity != 4 {
		t.Fatalf("unexpected timestamps: start=%d last=%d", buf.StartTimestamp, buf.LastActivity)
	}
}

func TestIngestSpeakerSwitchCommits(t *testing.T) {
	buf := &domain.Buffer{}

	if got := Ingest(buf, domain.SpeakerHR, "Tell me about X", 1); got != nil {
		t.Fatalf("first fragment committed: %+v", got)
	}
	if got := Ingest(buf, domain.SpeakerHR, "and Y", 2); got != nil {
		t.Fatalf("second fragment committed: %+v", got)
	}

	got := Ingest(buf, domain.SpeakerCandidate, "I did Z", 3)
	if got == nil {
		t.Fatal("expected commit on speaker switch")
	}
	if got.Speaker != domain.SpeakerHR || got.Text != "Tell me about X and Y" || got.Timestamp != 1 {
		t.Fatalf("unexpected utterance: %+v", got)
	}

	// The new turn is open for the candidate.
	if buf.Speaker != domain.SpeakerCandidate || buf.Text != "I did Z" || buf.StartTimestamp != 3 {
		t.Fatalf("unexpected buffer after switch: %+v", buf)
	}
}

func TestIngestRejectsEmptyAndUnknown(t *testing.T) {
	buf := &domain.Buffer{}

	if got := Ingest(buf, domain.SpeakerHR, "   ", 1); got != nil {
		t.Fatalf("whitespace fragment committed: %+v", got)
	}
	if !buf.Idle() {
		t.Fatalf("whitespace fragment opened buffer: %+v", buf)
	}

	if got := Ingest(buf, domain.Speaker("narrator"), "hello", 1); got != nil {
		t.Fatalf("unknown speaker committed: %+v", got)
	}
	if !buf.Idle() {
		t.Fatalf("unknown speaker opened buffer: %+v", buf)
	}

	// A rejected fragment must not disturb an open turn either.
	Ingest(buf, domain.SpeakerHR, "question", 2)
	Ingest(buf, domain.SpeakerCandidate, "", 3)
	if buf.Speaker != domain.SpeakerHR || buf.Text != "question" {
		t.Fatalf("empty fragment mutated buffer: %+v", buf)
	}
}

func TestIngestRapidAlternation(t *testing.T) {
	buf := &domain.Buffer{}

	Ingest(buf, domain.SpeakerCandidate, "so then I", 1)
	first := Ingest(buf, domain.SpeakerHR, "why?", 2)
	second := Ingest(buf, domain.SpeakerCandidate, "because", 3)

	if first == nil || first.Speaker != domain.SpeakerCandidate {
		t.Fatalf("expected candidate commit, got %+v", first)
	}
	if second == nil || second.Speaker != domain.SpeakerHR || second.Text != "why?" {
		t.Fatalf("expected hr commit, got %+v", second)
	}
}

func TestFlush(t *testing.T) {
	buf := &domain.Buffer{}

	if got := Flush(buf); got != nil {
		t.Fatalf("flush of idle buffer returned %+v", got)
	}

	Ingest(buf, domain.SpeakerCandidate, "I built", 10)
	Ingest(buf, domain.SpeakerCandidate, "a pipeline", 11)

	got := Flush(buf)
	if got == nil || got.Text != "I built a pipeline" || got.Timestamp != 10 {
		t.Fatalf("unexpected flushed utterance: %+v", got)
	}
	if !buf.Idle() {
		t.Fatalf("buffer not idle after flush: %+v", buf)
	}

	// Second flush is a no-op.
	if got := Flush(buf); got != nil {
		t.Fatalf("second flush returned %+v", got)
	}
}
