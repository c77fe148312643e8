// Package storage persists finished interview sessions to SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Young6-101/ai-interview-assistant/internal/domain"
)

// Store is the durable interview record store.
type Store struct {
	db *sql.DB
}

// InterviewSummary is the list-view projection of a stored interview.
type InterviewSummary struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Mode           string     `json:"mode"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	UtteranceCount int        `json:"utterance_count"`
	WeakPointCount int        `json:"weak_point_count"`
}

// New opens (and migrates) the interview database.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS interviews (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			mode TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			transcript TEXT,
			weak_points TEXT,
			suggested_questions TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interviews_username ON interviews(username, started_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveSession writes a finished session snapshot. An existing record with
// the same ID is overwritten, so re-saving after a reconnect is safe.
func (s *Store) SaveSession(ctx context.Context, sess *domain.Session) error {
	transcript, err := json.Marshal(sess.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	weakPoints, err := json.Marshal(sess.WeakPoints)
	if err != nil {
		return fmt.Errorf("failed to marshal weak points: %w", err)
	}
	questions, err := json.Marshal(sess.SuggestedQuestions)
	if err != nil {
		return fmt.Errorf("failed to marshal suggested questions: %w", err)
	}

	var endedAt interface{}
	if sess.EndedAt != nil {
		endedAt = *sess.EndedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO interviews
			(id, username, mode, status, started_at, ended_at, transcript, weak_points, suggested_questions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Username, sess.Mode, string(sess.Status), sess.StartedAt, endedAt,
		string(transcript), string(weakPoints), string(questions),
	)
	if err != nil {
		return fmt.Errorf("failed to save interview: %w", err)
	}
	return nil
}

// GetInterview loads one stored interview as a full session snapshot.
// Returns nil when the record does not exist.
func (s *Store) GetInterview(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, mode, status, started_at, ended_at, transcript, weak_points, suggested_questions
		FROM interviews WHERE id = ?`, id)

	var sess domain.Session
	var status string
	var endedAt sql.NullTime
	var transcript, weakPoints, questions string
	err := row.Scan(&sess.ID, &sess.Username, &sess.Mode, &status, &sess.StartedAt,
		&endedAt, &transcript, &weakPoints, &questions)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load interview: %w", err)
	}

	sess.Status = domain.SessionStatus(status)
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	if err := json.Unmarshal([]byte(transcript), &sess.Transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	if err := json.Unmarshal([]byte(weakPoints), &sess.WeakPoints); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weak points: %w", err)
	}
	if err := json.Unmarshal([]byte(questions), &sess.SuggestedQuestions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suggested questions: %w", err)
	}
	return &sess, nil
}

// ListInterviews returns summaries of stored interviews, newest first.
// An empty username lists everything.
func (s *Store) ListInterviews(ctx context.Context, username string) ([]InterviewSummary, error) {
	query := `
		SELECT id, username, mode, status, started_at, ended_at, transcript, weak_points
		FROM interviews`
	args := []interface{}{}
	if username != "" {
		query += ` WHERE username = ?`
		args = append(args, username)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	defer rows.Close()

	var summaries []InterviewSummary
	for rows.Next() {
		var sum InterviewSummary
		var endedAt sql.NullTime
		var transcript, weakPoints string
		if err := rows.Scan(&sum.ID, &sum.Username, &sum.Mode, &sum.Status,
			&sum.StartedAt, &endedAt, &transcript, &weakPoints); err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		if endedAt.Valid {
			t := endedAt.Time
			sum.EndedAt = &t
		}
		var utterances []domain.Utterance
		if json.Unmarshal([]byte(transcript), &utterances) == nil {
			sum.UtteranceCount = len(utterances)
		}
		var points []domain.WeakPoint
		if json.Unmarshal([]byte(weakPoints), &points) == nil {
			sum.WeakPointCount = len(points)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
