package ws

import (
	"context"
	"encoding/base64"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Young6-101/ai-interview-assistant/internal/analysis"
	"github.com/Young6-101/ai-interview-assistant/internal/auth"
	"github.com/Young6-101/ai-interview-assistant/internal/config"
	"github.com/Young6-101/ai-interview-assistant/internal/domain"
	"github.com/Young6-101/ai-interview-assistant/internal/hub"
	"github.com/Young6-101/ai-interview-assistant/internal/llm"
	"github.com/Young6-101/ai-interview-assistant/internal/realtime"
	"github.com/Young6-101/ai-interview-assistant/internal/session"
)

// fakePersister records durable save attempts.
type fakePersister struct {
	mu    sync.Mutex
	saves []*domain.Session
}

func (f *fakePersister) SaveSession(ctx context.Context, sess *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, sess)
	return nil
}

func (f *fakePersister) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakePersister) last() *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return nil
	}
	return f.saves[len(f.saves)-1]
}

// fakeRealtime stands in for the external realtime service.
type fakeRealtime struct {
	events chan realtime.Event

	mu     sync.Mutex
	audio  [][]byte
	texts  []string
	closed bool
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{events: make(chan realtime.Event, 16)}
}

func (f *fakeRealtime) Connect(ctx context.Context) error { return nil }

func (f *fakeRealtime) SendAudio(audio []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, audio)
	return nil
}

func (f *fakeRealtime) SendTextInstruction(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeRealtime) Events() <-chan realtime.Event { return f.events }

func (f *fakeRealtime) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeRealtime) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type gatewayHarness struct {
	sessions  *session.Store
	persister *fakePersister
	rt        *fakeRealtime
	server    *httptest.Server
}

func newGateway(t *testing.T, withRealtime bool) *gatewayHarness {
	t.Helper()
	cfg := &config.Config{
		PingInterval:   30 * time.Second,
		WriteTimeout:   5 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 65536,
	}
	h := &gatewayHarness{
		sessions:  session.NewStore(),
		persister: &fakePersister{},
	}
	analyzer := analysis.NewAnalyzer(llm.NewMockClient(), "mock")

	var factory RealtimeFactory
	if withRealtime {
		h.rt = newFakeRealtime()
		factory = func() realtime.Service { return h.rt }
	}

	gw := NewServer(cfg, hub.NewHub(), h.sessions, analyzer, h.persister, factory)

	e := echo.New()
	e.GET("/ws", gw.HandleWebSocket)
	h.server = httptest.NewServer(e)
	t.Cleanup(h.server.Close)
	return h
}

func (h *gatewayHarness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

// waitFor reads events until one of the wanted type arrives, skipping
// interleaved events from concurrent handlers.
func waitFor(t *testing.T, conn *websocket.Conn, msgType string) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", msgType, err)
		}
		if msg["type"] == msgType {
			return msg
		}
	}
}

func startSession(t *testing.T, conn *websocket.Conn, mode string) string {
	t.Helper()
	send(t, conn, map[string]interface{}{
		"type":  "start",
		"token": auth.GenerateToken("hr1"),
		"mode":  mode,
	})
	msg := waitFor(t, conn, "session_started")
	id, _ := msg["session_id"].(string)
	if id == "" {
		t.Fatalf("missing session_id: %v", msg)
	}
	return id
}

func TestStartRejectsInvalidToken(t *testing.T) {
	h := newGateway(t, false)
	conn := h.dial(t)

	send(t, conn, map[string]interface{}{"type": "start", "token": "garbage"})
	msg := waitFor(t, conn, "error")
	if msg["message"] != "Invalid token" {
		t.Fatalf("unexpected error: %v", msg)
	}
	if h.sessions.Count() != 0 {
		t.Fatal("session created despite invalid token")
	}

	// The connection stays Idle and a valid start still succeeds.
	startSession(t, conn, "realtime")
	if h.sessions.Count() != 1 {
		t.Fatal("session not created after valid start")
	}
}

func TestPingPongAndUnknownMessages(t *testing.T) {
	h := newGateway(t, false)
	conn := h.dial(t)

	// Unknown kinds are ignored without terminating the connection.
	startSession(t, conn, "realtime")
	send(t, conn, map[string]interface{}{"type": "mystery"})

	send(t, conn, map[string]interface{}{"type": "ping"})
	waitFor(t, conn, "pong")
}

func TestTranscriptCommitAndClassification(t *testing.T) {
	h := newGateway(t, false)
	conn := h.dial(t)
	sessionID := startSession(t, conn, "realtime")

	send(t, conn, map[string]interface{}{"type": "transcript", "speaker": "hr", "text": "Tell me about X", "timestamp": 1})
	send(t, conn, map[string]interface{}{"type": "transcript", "speaker": "hr", "text": "and Y", "timestamp": 2})
	send(t, conn, map[string]interface{}{"type": "transcript", "speaker": "candidate", "text": "I did Z", "timestamp": 3})

	msg := waitFor(t, conn, "new_transcript")
	payload := msg["payload"].(map[string]interface{})
	if payload["speaker"] != "hr" || payload["text"] != "Tell me about X and Y" {
		t.Fatalf("unexpected commit payload: %v", payload)
	}

	cls := waitFor(t, conn, "hr_question_classified")
	result := cls["classification"].(map[string]interface{})
	if result["question_type"] != "behavioral_question" {
		t.Fatalf("unexpected classification: %v", result)
	}

	snap, ok := h.sessions.Snapshot(sessionID)
	if !ok {
		t.Fatal("session missing")
	}
	if len(snap.Transcript) != 1 || snap.LastHRQuestion == nil {
		t.Fatalf("unexpected session state: %+v", snap)
	}
	if snap.Buffer.Speaker != domain.SpeakerCandidate {
		t.Fatalf("candidate turn not open: %+v", snap.Buffer)
	}
}

func TestRequestAnalysisWithNoContext(t *testing.T) {
	h := newGateway(t, false)
	conn := h.dial(t)
	startSession(t, conn, "realtime")

	send(t, conn, map[string]interface{}{"type": "request_analysis"})
	msg := waitFor(t, conn, "analysis_error")
	if !strings.Contains(msg["message"].(string), "nothing to analyze") {
		t.Fatalf("unexpected message: %v", msg)
	}
}

func TestRequestAnalysisFullChain(t *testing.T) {
	h := newGateway(t, false)
	conn := h.dial(t)
	sessionID := startSession(t, conn, "realtime")

	send(t, conn, map[string]interface{}{"type": "transcript", "speaker": "hr", "text": "Tell me about the migration", "timestamp": 1})
	send(t, conn, map[string]interface{}{"type": "transcript", "speaker": "candidate", "text": "I led it end to end", "timestamp": 2})
	waitFor(t, conn, "new_transcript")

	// The candidate turn is still buffered; request_analysis must flush it.
	send(t, conn, map[string]interface{}{"type": "request_analysis"})

	waitFor(t, conn, "weak_points_updated")
	questions := waitFor(t, conn, "suggested_questions")
	if len(questions["questions"].([]interface{})) == 0 {
		t.Fatalf("no suggested questions: %v", questions)
	}
	waitFor(t, conn, "analysis_complete")

	snap, _ := h.sessions.Snapshot(sessionID)
	if len(snap.Transcript) != 2 {
		t.Fatalf("flush did not commit candidate turn: %+v", snap.Transcript)
	}
	if snap.LastAnalysis == nil || len(snap.SuggestedQuestions) == 0 {
		t.Fatalf("analysis results not cached: %+v", snap)
	}
}

func TestPauseResume(t *testing.T) {
	h := newGateway(t, false)
	conn := h.dial(t)
	sessionID := startSession(t, conn, "realtime")

	send(t, conn, map[string]interface{}{"type": "pause"})
	waitFor(t, conn, "interview_paused")
	snap, _ := h.sessions.Snapshot(sessionID)
	if !snap.Paused {
		t.Fatal("pause flag not set")
	}

	send(t, conn, map[string]interface{}{"type": "resume"})
	waitFor(t, conn, "interview_resumed")
	snap, _ = h.sessions.Snapshot(sessionID)
	if snap.Paused {
		t.Fatal("pause flag not cleared")
	}
}

func TestEndFlushesAndPersists(t *testing.T) {
	h := newGateway(t, false)
	conn := h.dial(t)
	sessionID := startSession(t, conn, "realtime")

	// One committed utterance plus one open buffer at end time.
	send(t, conn, map[string]interface{}{"type": "transcript", "speaker": "hr", "text": "First question", "timestamp": 1})
	send(t, conn, map[string]interface{}{"type": "transcript", "speaker": "candidate", "text": "My answer", "timestamp": 2})
	waitFor(t, conn, "new_transcript")

	send(t, conn, map[string]interface{}{"type": "end"})
	msg := waitFor(t, conn, "session_ended")
	if msg["session_id"] != sessionID {
		t.Fatalf("unexpected ack: %v", msg)
	}

	if h.persister.count() != 1 {
		t.Fatalf("expected 1 save attempt, got %d", h.persister.count())
	}
	saved := h.persister.last()
	if saved.EndedAt == nil || saved.Status != domain.StatusCompleted {
		t.Fatalf("session not finalized: %+v", saved)
	}
	// committed + flushed open buffer
	if len(saved.Transcript) != 2 {
		t.Fatalf("expected 2 persisted utterances, got %d", len(saved.Transcript))
	}

	if _, ok := h.sessions.Snapshot(sessionID); ok {
		t.Fatal("session still in live store after end")
	}
}

func TestDisconnectPersistsOnce(t *testing.T) {
	h := newGateway(t, false)
	conn := h.dial(t)
	startSession(t, conn, "realtime")

	send(t, conn, map[string]interface{}{"type": "transcript", "speaker": "hr", "text": "Hello there", "timestamp": 1})
	time.Sleep(50 * time.Millisecond)
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for h.persister.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no save attempt after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	saved := h.persister.last()
	if saved.EndedAt == nil {
		t.Fatal("ended_at not stamped on disconnect")
	}
	if len(saved.Transcript) != 1 || saved.Transcript[0].Text != "Hello there" {
		t.Fatalf("open buffer not flushed on disconnect: %+v", saved.Transcript)
	}
	if h.persister.count() != 1 {
		t.Fatalf("expected exactly 1 save attempt, got %d", h.persister.count())
	}
}

func TestRealtimeProxyFlow(t *testing.T) {
	h := newGateway(t, true)
	conn := h.dial(t)
	sessionID := startSession(t, conn, "realtime")

	// Audio is decoded and forwarded verbatim.
	send(t, conn, map[string]interface{}{
		"type":    "audio",
		"payload": base64.StdEncoding.EncodeToString([]byte{1, 2, 3}),
	})

	// Proxy transcript events land in the session and reach the client.
	h.rt.events <- realtime.Event{Kind: realtime.EventTranscript, Text: "I built the pipeline", IsFinal: true}
	msg := waitFor(t, conn, "transcript_update")
	payload := msg["payload"].(map[string]interface{})
	if payload["text"] != "I built the pipeline" || payload["speaker"] != "candidate" {
		t.Fatalf("unexpected proxy transcript: %v", payload)
	}

	// Tool-call suggestions are formatted and appended.
	h.rt.events <- realtime.Event{Kind: realtime.EventAnalysis, Suggestions: []realtime.Suggestion{
		{Type: "deep_dive", Question: "Which stage was slowest?", Reasoning: "probe"},
	}}
	sq := waitFor(t, conn, "suggested_questions")
	questions := sq["questions"].([]interface{})
	if len(questions) != 1 {
		t.Fatalf("unexpected questions: %v", questions)
	}
	q := questions[0].(map[string]interface{})
	if q["skill"] != "DEEP DIVE" || q["text"] != "Which stage was slowest?" {
		t.Fatalf("unexpected question formatting: %v", q)
	}

	send(t, conn, map[string]interface{}{"type": "generate_questions"})
	waitFor(t, conn, "info")

	snap, _ := h.sessions.Snapshot(sessionID)
	if len(snap.Transcript) != 1 || len(snap.SuggestedQuestions) != 1 {
		t.Fatalf("proxy events not recorded: %+v", snap)
	}

	send(t, conn, map[string]interface{}{"type": "end"})
	waitFor(t, conn, "session_ended")

	h.rt.mu.Lock()
	audioCount, textCount := len(h.rt.audio), len(h.rt.texts)
	h.rt.mu.Unlock()
	if audioCount != 1 || textCount != 1 {
		t.Fatalf("proxy sends not recorded: audio=%d texts=%d", audioCount, textCount)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !h.rt.isClosed() {
		if time.Now().After(deadline) {
			t.Fatal("realtime service not closed on end")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMessagesBeforeStartAreRejected(t *testing.T) {
	h := newGateway(t, false)
	conn := h.dial(t)

	send(t, conn, map[string]interface{}{"type": "transcript", "speaker": "hr", "text": "hi", "timestamp": 1})
	msg := waitFor(t, conn, "error")
	if !strings.Contains(msg["message"].(string), "no active session") {
		t.Fatalf("unexpected error: %v", msg)
	}
}
