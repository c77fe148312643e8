// Package session provides the in-memory registry of live interview sessions.
package session

import (
	"sync"

	"github.com/Young6-101/ai-interview-assistant/internal/domain"
)

// Store is the single authority for live session state. All reads and
// writes go through one store-wide mutex; sessions are few and short-lived
// relative to request latency, so coarse locking is sufficient and rules
// out lost updates when a commit races a request_analysis flush on the
// same session.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*domain.Session),
	}
}

// Create registers a new session. An existing session with the same ID is
// replaced.
func (s *Store) Create(sess *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// Mutate applies fn to the session under the store lock. It is the only
// sanctioned way to change a session. Returns false if the session does
// not exist.
func (s *Store) Mutate(id string, fn func(*domain.Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	fn(sess)
	return true
}

// Snapshot returns a copy of the session safe to read outside the lock.
// Slices are copied; the caller must not treat the result as live state.
func (s *Store) Snapshot(id string) (*domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return cloneSession(sess), true
}

// Remove deletes the session from the live registry.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func cloneSession(sess *domain.Session) *domain.Session {
	out := *sess
	out.Transcript = append([]domain.Utterance(nil), sess.Transcript...)
	out.WeakPoints = append([]domain.WeakPoint(nil), sess.WeakPoints...)
	out.SuggestedQuestions = append([]domain.SuggestedQuestion(nil), sess.SuggestedQuestions...)
	if sess.LastHRQuestion != nil {
		u := *sess.LastHRQuestion
		out.LastHRQuestion = &u
	}
	if sess.LastCandidateAnswer != nil {
		u := *sess.LastCandidateAnswer
		out.LastCandidateAnswer = &u
	}
	if sess.LastClassification != nil {
		c := *sess.LastClassification
		out.LastClassification = &c
	}
	if sess.LastAnalysis != nil {
		a := *sess.LastAnalysis
		a.Strengths = append([]string(nil), sess.LastAnalysis.Strengths...)
		a.WeakPoints = append([]domain.WeakPoint(nil), sess.LastAnalysis.WeakPoints...)
		a.Suggestions = append([]string(nil), sess.LastAnalysis.Suggestions...)
		out.LastAnalysis = &a
	}
	if sess.EndedAt != nil {
		t := *sess.EndedAt
		out.EndedAt = &t
	}
	return &out
}
