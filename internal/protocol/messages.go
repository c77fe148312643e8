// Package protocol defines the WebSocket message protocol between clients and the backend.
package protocol

import (
	"github.com/Young6-101/ai-interview-assistant/internal/domain"
)

// Message types from client to server
const (
	TypeStart             = "start"
	TypeAudio             = "audio"
	TypeTranscript        = "transcript"
	TypeWeakPoints        = "weak_points"
	TypeRequestAnalysis   = "request_analysis"
	TypeGenerateQuestions = "generate_questions"
	TypePause             = "pause"
	TypeResume            = "resume"
	TypeEnd               = "end"
	TypeStop              = "stop"
	TypePing              = "ping"
)

// Message types from server to client
const (
	TypeSessionStarted       = "session_started"
	TypeNewTranscript        = "new_transcript"
	TypeTranscriptUpdate     = "transcript_update"
	TypeHRQuestionClassified = "hr_question_classified"
	TypeWeakPointsUpdated    = "weak_points_updated"
	TypeSuggestedQuestions   = "suggested_questions"
	TypeAnalysisComplete     = "analysis_complete"
	TypeAnalysisError        = "analysis_error"
	TypeInterviewPaused      = "interview_paused"
	TypeInterviewResumed     = "interview_resumed"
	TypeSessionEnded         = "session_ended"
	TypePong                 = "pong"
	TypeInfo                 = "info"
	TypeError                = "error"
)

// BaseMessage carries the type discriminator shared by all messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// StartMessage opens an interview session.
type StartMessage struct {
	BaseMessage
	Token    string `json:"token"`
	Mode     string `json:"mode,omitempty"`
	Username string `json:"username,omitempty"`
}

// AudioMessage carries one base64-encoded audio chunk for the realtime service.
type AudioMessage struct {
	BaseMessage
	Payload string `json:"payload"`
}

// TranscriptMessage carries one speech fragment from the client recognizer.
type TranscriptMessage struct {
	BaseMessage
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// WeakPointsMessage carries client-side weak point annotations.
type WeakPointsMessage struct {
	BaseMessage
	Data []domain.WeakPoint `json:"data"`
}

// SessionStartedMessage acknowledges a successful start.
type SessionStartedMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
}

// TranscriptPayload is the body of transcript events sent to clients.
type TranscriptPayload struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	IsFinal   bool   `json:"is_final,omitempty"`
}

// TranscriptEventMessage notifies clients of a committed utterance.
// Type is new_transcript for client-side commits and transcript_update
// for transcripts produced by the realtime service.
type TranscriptEventMessage struct {
	BaseMessage
	SessionID string            `json:"session_id"`
	Payload   TranscriptPayload `json:"payload"`
}

// ClassificationMessage carries the classification of the last HR question.
type ClassificationMessage struct {
	BaseMessage
	Classification domain.Classification `json:"classification"`
}

// WeakPointsUpdatedMessage fans out the accumulated weak points.
type WeakPointsUpdatedMessage struct {
	BaseMessage
	WeakPoints []domain.WeakPoint `json:"weak_points"`
}

// SuggestedQuestionsMessage delivers AI-proposed follow-up questions.
type SuggestedQuestionsMessage struct {
	BaseMessage
	SessionID string                     `json:"session_id,omitempty"`
	Questions []domain.SuggestedQuestion `json:"questions"`
}

// SessionEndedMessage acknowledges session end.
type SessionEndedMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
}

// InfoMessage is an advisory notice to the client.
type InfoMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// ErrorMessage reports a protocol, auth, or analysis error.
type ErrorMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// Event builds a bare event message with only a type field (pong,
// analysis_complete, interview_paused, interview_resumed).
func Event(msgType string) BaseMessage {
	return BaseMessage{Type: msgType}
}
