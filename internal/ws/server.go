// Package ws provides the WebSocket gateway for live interview sessions.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Young6-101/ai-interview-assistant/internal/analysis"
	"github.com/Young6-101/ai-interview-assistant/internal/config"
	"github.com/Young6-101/ai-interview-assistant/internal/domain"
	"github.com/Young6-101/ai-interview-assistant/internal/hub"
	"github.com/Young6-101/ai-interview-assistant/internal/protocol"
	"github.com/Young6-101/ai-interview-assistant/internal/realtime"
	"github.com/Young6-101/ai-interview-assistant/internal/session"
)

// Persister stores finished session snapshots durably.
type Persister interface {
	SaveSession(ctx context.Context, sess *domain.Session) error
}

// RealtimeFactory builds a fresh realtime proxy for one session.
// A nil factory disables the realtime channel entirely.
type RealtimeFactory func() realtime.Service

// Server handles WebSocket connections.
type Server struct {
	cfg       *config.Config
	hub       *hub.Hub
	sessions  *session.Store
	analyzer  *analysis.Analyzer
	persister Persister
	newProxy  RealtimeFactory
	upgrader  websocket.Upgrader
}

// NewServer creates a new WebSocket gateway.
func NewServer(cfg *config.Config, h *hub.Hub, sessions *session.Store, analyzer *analysis.Analyzer, persister Persister, newProxy RealtimeFactory) *Server {
	return &Server{
		cfg:       cfg,
		hub:       h,
		sessions:  sessions,
		analyzer:  analyzer,
		persister: persister,
		newProxy:  newProxy,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// connState tracks one connection's position in the
// Unauthenticated -> Idle -> Active -> Ended state machine.
// It is owned by the connection's read goroutine; the proxy listener
// goroutine only reads rt and closes rtDone.
type connState struct {
	conn      *hub.Connection
	sessionID string // empty while Idle
	ended     bool
	rt        realtime.Service
	rtDone    chan struct{}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(&connState{conn: conn})

	return nil
}

// readPump reads messages from the WebSocket connection. On exit it
// finalizes the session, so an abrupt disconnect still produces exactly
// one durable save attempt.
func (s *Server) readPump(st *connState) {
	defer func() {
		s.endSession(st)
		s.hub.Unregister(st.conn)
		st.conn.Close()
	}()

	st.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	st.conn.Conn.SetPongHandler(func(string) error {
		st.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := st.conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		if done := s.handleMessage(st, message); done {
			return
		}
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages by kind. Returns true when
// the connection has reached the Ended state and the read loop should stop.
func (s *Server) handleMessage(st *connState, data []byte) bool {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(st.conn, "invalid JSON message")
		return false
	}

	switch baseMsg.Type {
	case protocol.TypePing:
		s.hub.SendJSON(st.conn, protocol.Event(protocol.TypePong))
		return false
	case protocol.TypeStart:
		s.handleStart(st, data)
		return false
	}

	// Everything below requires an active session.
	if st.sessionID == "" {
		s.sendError(st.conn, "no active session, send start first")
		return false
	}

	switch baseMsg.Type {
	case protocol.TypeTranscript:
		s.handleTranscript(st, data)
	case protocol.TypeAudio:
		s.handleAudio(st, data)
	case protocol.TypeWeakPoints:
		s.handleWeakPoints(st, data)
	case protocol.TypeRequestAnalysis:
		s.handleRequestAnalysis(st)
	case protocol.TypeGenerateQuestions:
		s.handleGenerateQuestions(st)
	case protocol.TypePause:
		s.handlePauseResume(st, true)
	case protocol.TypeResume:
		s.handlePauseResume(st, false)
	case protocol.TypeEnd, protocol.TypeStop:
		s.endSession(st)
		return true
	default:
		log.Printf("Unknown message type ignored: %s", baseMsg.Type)
	}
	return false
}

// sendError sends an error event to a connection.
func (s *Server) sendError(conn *hub.Connection, message string) {
	s.hub.SendJSON(conn, protocol.ErrorMessage{
		BaseMessage: protocol.Event(protocol.TypeError),
		Message:     message,
	})
}
