// Package domain defines the core domain models for the interview backend.
package domain

import "time"

// Speaker identifies who produced a piece of speech.
type Speaker string

const (
	SpeakerHR        Speaker = "hr"
	SpeakerCandidate Speaker = "candidate"
)

// Valid reports whether the speaker tag is one of the recognized roles.
func (s Speaker) Valid() bool {
	return s == SpeakerHR || s == SpeakerCandidate
}

// SessionStatus represents the lifecycle status of an interview session.
type SessionStatus string

const (
	StatusCreated   SessionStatus = "created"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

// Utterance is one committed, attributed unit of speech. It is immutable
// once appended to a session transcript.
type Utterance struct {
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	Timestamp int64   `json:"timestamp"` // epoch milliseconds
}

// Buffer accumulates speech fragments for the currently open turn.
// An empty Speaker means the buffer is idle.
type Buffer struct {
	Speaker        Speaker `json:"speaker,omitempty"`
	Text           string  `json:"text,omitempty"`
	StartTimestamp int64   `json:"start_timestamp,omitempty"`
	LastActivity   int64   `json:"last_activity,omitempty"`
}

// Idle reports whether the buffer holds no open turn.
func (b *Buffer) Idle() bool {
	return b.Speaker == ""
}

// Reset returns the buffer to the idle state.
func (b *Buffer) Reset() {
	*b = Buffer{}
}

// WeakPoint is a flagged deficiency in a candidate answer.
type WeakPoint struct {
	Component string `json:"component"`
	Severity  string `json:"severity"` // high, medium, low
	Question  string `json:"question"`
}

// SuggestedQuestion is an AI-proposed follow-up question.
type SuggestedQuestion struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Skill     string `json:"skill"`
	Reasoning string `json:"reasoning,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Classification is the result of classifying an HR statement.
type Classification struct {
	IsQuestion   bool   `json:"is_question"`
	QuestionType string `json:"question_type"`
	Confidence   string `json:"confidence"` // high, medium, low
	Text         string `json:"text"`
}

// Analysis is the result of scoring a candidate answer.
type Analysis struct {
	QualityScore int         `json:"quality_score"`
	Strengths    []string    `json:"strengths"`
	WeakPoints   []WeakPoint `json:"weak_points"`
	Suggestions  []string    `json:"suggestions"`
}

// Session holds the full live state of one interview run.
// All mutation goes through the session store; nothing outside the store
// may touch a Session after EndedAt is set.
type Session struct {
	ID                  string              `json:"id"`
	Username            string              `json:"username"`
	Mode                string              `json:"mode"`
	Status              SessionStatus       `json:"status"`
	StartedAt           time.Time           `json:"started_at"`
	EndedAt             *time.Time          `json:"ended_at,omitempty"`
	Transcript          []Utterance         `json:"transcript"`
	WeakPoints          []WeakPoint         `json:"weak_points"`
	SuggestedQuestions  []SuggestedQuestion `json:"suggested_questions"`
	LastHRQuestion      *Utterance          `json:"last_hr_question,omitempty"`
	LastCandidateAnswer *Utterance          `json:"last_candidate_answer,omitempty"`
	LastClassification  *Classification     `json:"last_classification,omitempty"`
	LastAnalysis        *Analysis           `json:"last_analysis,omitempty"`
	Buffer              Buffer              `json:"buffer"`
	Paused              bool                `json:"paused"`
}

// RecordUtterance appends a committed utterance to the transcript and
// refreshes the per-role working context used by analysis.
func (s *Session) RecordUtterance(u Utterance) {
	s.Transcript = append(s.Transcript, u)
	switch u.Speaker {
	case SpeakerHR:
		copied := u
		s.LastHRQuestion = &copied
	case SpeakerCandidate:
		copied := u
		s.LastCandidateAnswer = &copied
	}
}
