// Package httpapi provides the REST API server for accounts and interview records.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Young6-101/ai-interview-assistant/internal/auth"
	"github.com/Young6-101/ai-interview-assistant/internal/domain"
	"github.com/Young6-101/ai-interview-assistant/internal/hub"
	"github.com/Young6-101/ai-interview-assistant/internal/session"
	"github.com/Young6-101/ai-interview-assistant/internal/storage"
)

// Server is the REST API server.
type Server struct {
	echo     *echo.Echo
	hub      *hub.Hub
	sessions *session.Store
	storage  *storage.Store
}

// NewServer creates a new REST API server.
func NewServer(h *hub.Hub, sessions *session.Store, store *storage.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:     e,
		hub:      h,
		sessions: sessions,
		storage:  store,
	}

	// Register routes
	e.GET("/health", s.handleHealth)
	e.POST("/auth/login", s.handleLogin)
	e.POST("/api/interviews", s.handleCreateInterview)
	e.GET("/api/interviews", s.handleListInterviews)
	e.GET("/api/interviews/:id", s.handleGetInterview)

	return s
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"connections": s.hub.ConnectionCount(),
		"sessions":    s.sessions.Count(),
	})
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response for a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

// handleLogin authenticates an interviewer and issues a token.
func (s *Server) handleLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	token, ok := auth.Authenticate(req.Username, req.Password)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}

	return c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		Username:    req.Username,
	})
}

// CreateInterviewRequest is the request body for POST /api/interviews.
type CreateInterviewRequest struct {
	Username string `json:"username"`
	Mode     string `json:"mode,omitempty"`
}

// CreateInterviewResponse acknowledges a pre-created interview record.
type CreateInterviewResponse struct {
	InterviewID string `json:"interview_id"`
	Status      string `json:"status"`
}

// handleCreateInterview pre-creates an interview record in durable storage.
// The live session is established later over the WebSocket.
func (s *Server) handleCreateInterview(c echo.Context) error {
	var req CreateInterviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Username == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "username is required"})
	}
	if req.Mode == "" {
		req.Mode = "realtime"
	}

	sess := &domain.Session{
		ID:        "sess_" + uuid.New().String()[:8],
		Username:  req.Username,
		Mode:      req.Mode,
		Status:    domain.StatusCreated,
		StartedAt: time.Now(),
	}
	if err := s.storage.SaveSession(c.Request().Context(), sess); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create interview"})
	}

	return c.JSON(http.StatusCreated, CreateInterviewResponse{
		InterviewID: sess.ID,
		Status:      string(sess.Status),
	})
}

// handleListInterviews lists stored interview records, optionally filtered
// by the username query parameter.
func (s *Server) handleListInterviews(c echo.Context) error {
	summaries, err := s.storage.ListInterviews(c.Request().Context(), c.QueryParam("username"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list interviews"})
	}
	if summaries == nil {
		summaries = []storage.InterviewSummary{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"interviews": summaries})
}

// handleGetInterview returns one stored interview in full.
func (s *Server) handleGetInterview(c echo.Context) error {
	record, err := s.storage.GetInterview(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load interview"})
	}
	if record == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "interview not found"})
	}
	return c.JSON(http.StatusOK, record)
}
