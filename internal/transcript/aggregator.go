// Package transcript merges streams of speech fragments into committed utterances.
package transcript

import (
	"strings"

	"github.com/Young6-101/ai-interview-assistant/internal/domain"
)

// Ingest feeds one speech fragment into the buffer. Speech recognizers emit
// many short partial fragments per spoken turn; a turn is considered finished
// only when the speaker changes, so fragments from the same speaker are
// joined into one utterance.
//
// Returns the committed utterance when the incoming speaker differs from the
// open buffer's speaker, nil otherwise. Fragments with empty trimmed text or
// an unrecognized speaker are ignored without mutating the buffer.
func Ingest(buf *domain.Buffer, speaker domain.Speaker, text string, timestamp int64) *domain.Utterance {
	text = strings.TrimSpace(text)
	if text == "" || !speaker.Valid() {
		return nil
	}

	if buf.Idle() {
		buf.Speaker = speaker
		buf.Text = text
		buf.StartTimestamp = timestamp
		buf.LastActivity = timestamp
		return nil
	}

	if buf.Speaker == speaker {
		buf.Text = buf.Text + " " + text
		buf.LastActivity = timestamp
		return nil
	}

	// Speaker switch: commit the open turn, then open a new one.
	committed := Flush(buf)
	buf.Speaker = speaker
	buf.Text = text
	buf.StartTimestamp = timestamp
	buf.LastActivity = timestamp
	return committed
}

// Flush force-commits whatever turn is open. Used before analysis requests
// and on session end. Idempotent when the buffer is idle.
func Flush(buf *domain.Buffer) *domain.Utterance {
	if buf.Idle() {
		return nil
	}
	u := &domain.Utterance{
		Speaker:   buf.Speaker,
		Text:      strings.TrimSpace(buf.Text),
		Timestamp: buf.StartTimestamp,
	}
	buf.Reset()
	return u
}
