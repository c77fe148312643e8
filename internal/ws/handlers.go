package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Young6-101/ai-interview-assistant/internal/analysis"
	"github.com/Young6-101/ai-interview-assistant/internal/auth"
	"github.com/Young6-101/ai-interview-assistant/internal/domain"
	"github.com/Young6-101/ai-interview-assistant/internal/protocol"
	"github.com/Young6-101/ai-interview-assistant/internal/realtime"
	"github.com/Young6-101/ai-interview-assistant/internal/transcript"
)

const analysisTimeout = 30 * time.Second

// handleStart authenticates the client and creates the session.
func (s *Server) handleStart(st *connState, data []byte) {
	var msg protocol.StartMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(st.conn, "invalid start message")
		return
	}

	if st.sessionID != "" {
		s.sendError(st.conn, "session already started")
		return
	}

	username, ok := s.verifyToken(msg.Token)
	if !ok {
		s.sendError(st.conn, "Invalid token")
		return
	}
	// The client may present a display name distinct from the token subject.
	if msg.Username != "" {
		username = msg.Username
	}

	mode := msg.Mode
	if mode == "" {
		mode = "realtime"
	}

	sessionID := "sess_" + uuid.New().String()[:8]
	s.sessions.Create(&domain.Session{
		ID:        sessionID,
		Username:  username,
		Mode:      mode,
		Status:    domain.StatusActive,
		StartedAt: time.Now(),
	})
	st.sessionID = sessionID

	s.connectProxy(st)

	s.hub.SendJSON(st.conn, protocol.SessionStartedMessage{
		BaseMessage: protocol.Event(protocol.TypeSessionStarted),
		SessionID:   sessionID,
		Mode:        mode,
	})
	log.Printf("Interview started: %s (user: %s, mode: %s)", sessionID, username, mode)
}

// connectProxy establishes the realtime AI channel and starts its listener.
// A failed connect leaves the session in transcript-only mode.
func (s *Server) connectProxy(st *connState) {
	if s.newProxy == nil {
		return
	}
	rt := s.newProxy()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := rt.Connect(ctx); err != nil {
		log.Printf("Failed to connect realtime service: %v", err)
		s.sendError(st.conn, "Failed to connect to AI Service")
		return
	}
	st.rt = rt
	st.rtDone = make(chan struct{})
	go s.proxyListener(st)
}

// proxyListener drains the realtime event channel into the session and the
// client. It exits when the channel closes (stream down or session end).
func (s *Server) proxyListener(st *connState) {
	defer close(st.rtDone)

	for ev := range st.rt.Events() {
		switch ev.Kind {
		case realtime.EventTranscript:
			s.handleProxyTranscript(st, ev)
		case realtime.EventAnalysis:
			s.handleProxySuggestions(st, ev)
		}
	}
	log.Printf("Realtime channel closed for session %s", st.sessionID)
}

func (s *Server) handleProxyTranscript(st *connState, ev realtime.Event) {
	u := domain.Utterance{
		Speaker:   domain.SpeakerCandidate,
		Text:      ev.Text,
		Timestamp: time.Now().UnixMilli(),
	}
	s.sessions.Mutate(st.sessionID, func(sess *domain.Session) {
		sess.RecordUtterance(u)
	})
	s.hub.SendJSON(st.conn, protocol.TranscriptEventMessage{
		BaseMessage: protocol.Event(protocol.TypeTranscriptUpdate),
		SessionID:   st.sessionID,
		Payload: protocol.TranscriptPayload{
			Speaker:   string(u.Speaker),
			Text:      u.Text,
			Timestamp: u.Timestamp,
			IsFinal:   true,
		},
	})
}

func (s *Server) handleProxySuggestions(st *connState, ev realtime.Event) {
	if len(ev.Suggestions) == 0 {
		return
	}
	now := time.Now()
	questions := make([]domain.SuggestedQuestion, 0, len(ev.Suggestions))
	for i, sug := range ev.Suggestions {
		questions = append(questions, domain.SuggestedQuestion{
			ID:        fmt.Sprintf("q_%d_%d", now.Unix(), i),
			Text:      sug.Question,
			Skill:     strings.ToUpper(strings.ReplaceAll(sug.Type, "_", " ")),
			Reasoning: sug.Reasoning,
			Timestamp: now.UnixMilli(),
		})
	}
	log.Printf("AI generated %d questions for session %s", len(questions), st.sessionID)

	s.sessions.Mutate(st.sessionID, func(sess *domain.Session) {
		sess.SuggestedQuestions = append(sess.SuggestedQuestions, questions...)
	})
	s.hub.SendJSON(st.conn, protocol.SuggestedQuestionsMessage{
		BaseMessage: protocol.Event(protocol.TypeSuggestedQuestions),
		SessionID:   st.sessionID,
		Questions:   questions,
	})
}

// handleTranscript feeds one speech fragment through the aggregator.
// A commit triggers classification for HR speech, or answer scoring for
// candidate speech when a prior HR question is cached.
func (s *Server) handleTranscript(st *connState, data []byte) {
	var msg protocol.TranscriptMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(st.conn, "invalid transcript message")
		return
	}

	var committed *domain.Utterance
	s.sessions.Mutate(st.sessionID, func(sess *domain.Session) {
		committed = transcript.Ingest(&sess.Buffer, domain.Speaker(msg.Speaker), msg.Text, msg.Timestamp)
		if committed != nil {
			sess.RecordUtterance(*committed)
		}
	})
	if committed == nil {
		return
	}

	s.broadcastCommit(st.sessionID, *committed)
	go s.analyzeCommit(st, *committed)
}

// broadcastCommit fans a committed utterance out to every observer.
func (s *Server) broadcastCommit(sessionID string, u domain.Utterance) {
	s.hub.BroadcastJSON(protocol.TranscriptEventMessage{
		BaseMessage: protocol.Event(protocol.TypeNewTranscript),
		SessionID:   sessionID,
		Payload: protocol.TranscriptPayload{
			Speaker:   string(u.Speaker),
			Text:      u.Text,
			Timestamp: u.Timestamp,
		},
	})
}

// analyzeCommit runs the post-commit AI step for one utterance.
func (s *Server) analyzeCommit(st *connState, u domain.Utterance) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	switch u.Speaker {
	case domain.SpeakerHR:
		cls := s.analyzer.ClassifyQuestion(ctx, u.Text)
		s.sessions.Mutate(st.sessionID, func(sess *domain.Session) {
			sess.LastClassification = &cls
		})
		s.hub.SendJSON(st.conn, protocol.ClassificationMessage{
			BaseMessage:    protocol.Event(protocol.TypeHRQuestionClassified),
			Classification: cls,
		})

	case domain.SpeakerCandidate:
		snap, ok := s.sessions.Snapshot(st.sessionID)
		if !ok || snap.LastHRQuestion == nil {
			return
		}
		result := s.analyzer.AnalyzeAnswer(ctx, snap.LastHRQuestion.Text, u.Text, frameworkForMode(snap.Mode))
		var weakPoints []domain.WeakPoint
		s.sessions.Mutate(st.sessionID, func(sess *domain.Session) {
			sess.LastAnalysis = &result
			sess.WeakPoints = append(sess.WeakPoints, result.WeakPoints...)
			weakPoints = append([]domain.WeakPoint(nil), sess.WeakPoints...)
		})
		s.hub.BroadcastJSON(protocol.WeakPointsUpdatedMessage{
			BaseMessage: protocol.Event(protocol.TypeWeakPointsUpdated),
			WeakPoints:  weakPoints,
		})
	}
}

// handleAudio forwards one audio chunk to the realtime service.
func (s *Server) handleAudio(st *connState, data []byte) {
	if st.rt == nil {
		return
	}
	var msg protocol.AudioMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Payload == "" {
		return
	}
	audio, err := base64.StdEncoding.DecodeString(msg.Payload)
	if err != nil {
		log.Printf("Audio payload not decodable: %v", err)
		return
	}
	if err := st.rt.SendAudio(audio); err != nil {
		log.Printf("Failed to forward audio: %v", err)
	}
}

// handleWeakPoints appends client-side weak point annotations and fans
// the accumulated list out to all observers.
func (s *Server) handleWeakPoints(st *connState, data []byte) {
	var msg protocol.WeakPointsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(st.conn, "invalid weak_points message")
		return
	}

	var weakPoints []domain.WeakPoint
	s.sessions.Mutate(st.sessionID, func(sess *domain.Session) {
		sess.WeakPoints = append(sess.WeakPoints, msg.Data...)
		weakPoints = append([]domain.WeakPoint(nil), sess.WeakPoints...)
	})
	s.hub.BroadcastJSON(protocol.WeakPointsUpdatedMessage{
		BaseMessage: protocol.Event(protocol.TypeWeakPointsUpdated),
		WeakPoints:  weakPoints,
	})
}

// handleRequestAnalysis force-flushes the buffer and runs the full
// classify -> analyze -> followups chain on the cached context.
func (s *Server) handleRequestAnalysis(st *connState) {
	var flushed *domain.Utterance
	s.sessions.Mutate(st.sessionID, func(sess *domain.Session) {
		flushed = transcript.Flush(&sess.Buffer)
		if flushed != nil {
			sess.RecordUtterance(*flushed)
		}
	})
	if flushed != nil {
		s.broadcastCommit(st.sessionID, *flushed)
	}

	snap, ok := s.sessions.Snapshot(st.sessionID)
	if !ok {
		return
	}
	if snap.LastHRQuestion == nil && snap.LastCandidateAnswer == nil {
		s.hub.SendJSON(st.conn, protocol.ErrorMessage{
			BaseMessage: protocol.Event(protocol.TypeAnalysisError),
			Message:     "nothing to analyze yet",
		})
		return
	}

	go s.runFullAnalysis(st, snap)
}

// runFullAnalysis performs the discrete request/response analysis chain,
// tolerating whichever half of the context is missing.
func (s *Server) runFullAnalysis(st *connState, snap *domain.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	if snap.LastHRQuestion != nil {
		cls := s.analyzer.ClassifyQuestion(ctx, snap.LastHRQuestion.Text)
		s.sessions.Mutate(st.sessionID, func(sess *domain.Session) {
			sess.LastClassification = &cls
		})
		s.hub.SendJSON(st.conn, protocol.ClassificationMessage{
			BaseMessage:    protocol.Event(protocol.TypeHRQuestionClassified),
			Classification: cls,
		})
	}

	weakArea := "the previous answer"
	if snap.LastHRQuestion != nil && snap.LastCandidateAnswer != nil {
		result := s.analyzer.AnalyzeAnswer(ctx, snap.LastHRQuestion.Text, snap.LastCandidateAnswer.Text, frameworkForMode(snap.Mode))
		var weakPoints []domain.WeakPoint
		s.sessions.Mutate(st.sessionID, func(sess *domain.Session) {
			sess.LastAnalysis = &result
			sess.WeakPoints = append(sess.WeakPoints, result.WeakPoints...)
			weakPoints = append([]domain.WeakPoint(nil), sess.WeakPoints...)
		})
		s.hub.BroadcastJSON(protocol.WeakPointsUpdatedMessage{
			BaseMessage: protocol.Event(protocol.TypeWeakPointsUpdated),
			WeakPoints:  weakPoints,
		})
		if len(result.WeakPoints) > 0 {
			weakArea = result.WeakPoints[0].Component
		}
	}

	followups := s.analyzer.GenerateFollowups(ctx, analysisContext(snap), weakArea, 3)
	if len(followups) > 0 {
		now := time.Now()
		questions := make([]domain.SuggestedQuestion, 0, len(followups))
		for i, text := range followups {
			questions = append(questions, domain.SuggestedQuestion{
				ID:        fmt.Sprintf("q_%d_%d", now.Unix(), i),
				Text:      text,
				Skill:     "FOLLOW UP",
				Timestamp: now.UnixMilli(),
			})
		}
		s.sessions.Mutate(st.sessionID, func(sess *domain.Session) {
			sess.SuggestedQuestions = append(sess.SuggestedQuestions, questions...)
		})
		s.hub.SendJSON(st.conn, protocol.SuggestedQuestionsMessage{
			BaseMessage: protocol.Event(protocol.TypeSuggestedQuestions),
			SessionID:   st.sessionID,
			Questions:   questions,
		})
	}

	s.hub.SendJSON(st.conn, protocol.Event(protocol.TypeAnalysisComplete))
}

// handleGenerateQuestions asks the realtime model for a fresh round of
// suggestions.
func (s *Server) handleGenerateQuestions(st *connState) {
	if st.rt == nil {
		s.sendError(st.conn, "AI service not connected")
		return
	}
	if err := st.rt.SendTextInstruction("Based on the conversation so far, please generate 3 follow-up questions immediately using the submit_interview_suggestions tool."); err != nil {
		log.Printf("Failed to request questions: %v", err)
		return
	}
	s.hub.SendJSON(st.conn, protocol.InfoMessage{
		BaseMessage: protocol.Event(protocol.TypeInfo),
		Message:     "Generating questions...",
	})
}

// handlePauseResume flips the advisory pause flag. Message processing
// continues either way.
func (s *Server) handlePauseResume(st *connState, paused bool) {
	s.sessions.Mutate(st.sessionID, func(sess *domain.Session) {
		sess.Paused = paused
	})
	if paused {
		s.hub.SendJSON(st.conn, protocol.Event(protocol.TypeInterviewPaused))
	} else {
		s.hub.SendJSON(st.conn, protocol.Event(protocol.TypeInterviewResumed))
	}
}

// endSession moves the connection to the terminal state: flush the open
// buffer, stamp ended_at, persist durably, acknowledge, and release the
// live session. Safe to call twice; the second call is a no-op.
func (s *Server) endSession(st *connState) {
	if st.ended || st.sessionID == "" {
		return
	}
	st.ended = true
	log.Printf("Ending interview: %s", st.sessionID)

	now := time.Now()
	s.sessions.Mutate(st.sessionID, func(sess *domain.Session) {
		if flushed := transcript.Flush(&sess.Buffer); flushed != nil {
			sess.RecordUtterance(*flushed)
		}
		sess.Status = domain.StatusCompleted
		sess.EndedAt = &now
	})

	if snap, ok := s.sessions.Snapshot(st.sessionID); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.persister.SaveSession(ctx, snap); err != nil {
			// Accepted data-loss risk: the end is still acknowledged.
			log.Printf("ERROR: failed to persist interview %s: %v", st.sessionID, err)
		}
		cancel()
	}

	s.hub.SendJSON(st.conn, protocol.SessionEndedMessage{
		BaseMessage: protocol.Event(protocol.TypeSessionEnded),
		SessionID:   st.sessionID,
	})

	s.sessions.Remove(st.sessionID)

	// Shut the realtime channel down and wait for the listener so it can
	// never write after the connection is gone.
	if st.rt != nil {
		st.rt.Close()
		<-st.rtDone
		st.rt = nil
	}
}

// verifyToken delegates identity verification.
func (s *Server) verifyToken(token string) (string, bool) {
	return auth.VerifyToken(token)
}

// frameworkForMode selects the analysis rubric for a session mode.
func frameworkForMode(mode string) string {
	switch mode {
	case "technical":
		return analysis.FrameworkTechnical
	case "general":
		return analysis.FrameworkGeneral
	default:
		return analysis.FrameworkSTAR
	}
}

// analysisContext renders the cached question/answer pair for the
// follow-up prompt.
func analysisContext(snap *domain.Session) string {
	var b strings.Builder
	if snap.LastHRQuestion != nil {
		b.WriteString("HR: " + snap.LastHRQuestion.Text + "\n")
	}
	if snap.LastCandidateAnswer != nil {
		b.WriteString("Candidate: " + snap.LastCandidateAnswer.Text + "\n")
	}
	return b.String()
}
