package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NikolozR/suliko-client/internal/domain"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSuggestionNotFound = errors.New("suggestion not found")
)

// Session is the editing state for one open project view. The translated
// markdown is the single source of truth for display and for diffing
// suggestion application; everything else is an eventually-consistent
// projection of the backend's job record.
type Session struct {
	ID     string `json:"id"`
	ChatID string `json:"chatId"`
	JobID  string `json:"jobId"`

	Job          domain.Job       `json:"job"`
	Status       domain.JobStatus `json:"status"`
	ErrorMessage string           `json:"errorMessage,omitempty"`

	TranslatedMarkdown string                    `json:"translatedMarkdown"`
	Hydrated           bool                      `json:"hydrated"`
	OriginalFile       *domain.ReconstructedFile `json:"originalFile,omitempty"`

	Suggestions           []domain.Suggestion `json:"suggestions"`
	SuggestionStatus      string              `json:"suggestionStatus,omitempty"`
	SuggestionAccepted    bool                `json:"suggestionAccepted"`
	ApplyingSuggestionIDs []string            `json:"applyingSuggestionIds,omitempty"`

	OpenedAt    time.Time  `json:"openedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Store holds all open sessions. It is an explicit, injectable container:
// the lifecycle tracker and the suggestion engine mutate sessions only
// through it, and a session that has been closed (or replaced by opening
// a different chat) silently absorbs late writes.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Open creates a session for a chat. An existing session for the same
// chat is replaced, so stale content can never survive navigation to a
// different job under the same project.
func (s *Store) Open(chatID, jobID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.sessions {
		if existing.ChatID == chatID {
			delete(s.sessions, id)
		}
	}

	sess := &Session{
		ID:       uuid.NewString(),
		ChatID:   chatID,
		JobID:    jobID,
		Status:   domain.StatusQueued,
		OpenedAt: time.Now(),
	}
	s.sessions[sess.ID] = sess

	return *sess
}

// Get returns a copy of a session.
func (s *Store) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *sess, nil
}

// SessionsForChat returns the ids of sessions currently tracking a chat.
// Callers replacing a chat's session use this to tear down the old
// session's background work first.
func (s *Store) SessionsForChat(chatID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, sess := range s.sessions {
		if sess.ChatID == chatID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Close removes a session. Any in-flight poll or hydration keyed to it
// becomes a no-op.
func (s *Store) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len reports the number of open sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Update applies fn to a live session under the store lock. It returns
// ErrSessionNotFound when the session was closed or replaced, which is
// how late responses from abandoned poll loops get discarded.
func (s *Store) Update(id string, fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	fn(sess)
	return nil
}

// MergeSuggestions folds newly fetched suggestions into a session's
// active set, keyed by id, dropping duplicates and truncating the result
// to limit entries. Existing suggestions keep their position.
func (s *Store) MergeSuggestions(id string, incoming []domain.Suggestion, limit int) error {
	return s.Update(id, func(sess *Session) {
		seen := make(map[string]struct{}, len(sess.Suggestions))
		for _, existing := range sess.Suggestions {
			seen[existing.ID] = struct{}{}
		}

		merged := sess.Suggestions
		for _, suggestion := range incoming {
			if _, dup := seen[suggestion.ID]; dup {
				continue
			}
			seen[suggestion.ID] = struct{}{}
			merged = append(merged, suggestion)
		}

		if limit > 0 && len(merged) > limit {
			merged = merged[:limit]
		}
		sess.Suggestions = merged
	})
}

// RemoveSuggestion drops a suggestion from the active set. Removed
// suggestions are never resurrected.
func (s *Store) RemoveSuggestion(id, suggestionID string) error {
	return s.Update(id, func(sess *Session) {
		kept := sess.Suggestions[:0]
		for _, suggestion := range sess.Suggestions {
			if suggestion.ID != suggestionID {
				kept = append(kept, suggestion)
			}
		}
		sess.Suggestions = kept
	})
}

// FindSuggestion returns a copy of one active suggestion.
func (s *Store) FindSuggestion(id, suggestionID string) (domain.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.Suggestion{}, ErrSessionNotFound
	}

	for _, suggestion := range sess.Suggestions {
		if suggestion.ID == suggestionID {
			return suggestion, nil
		}
	}
	return domain.Suggestion{}, ErrSuggestionNotFound
}

// EditSuggestedText stores a user edit against a suggestion id; the
// edited text is what gets applied on acceptance.
func (s *Store) EditSuggestedText(id, suggestionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}

	for i := range sess.Suggestions {
		if sess.Suggestions[i].ID == suggestionID {
			sess.Suggestions[i].SuggestedText = text
			return nil
		}
	}
	return ErrSuggestionNotFound
}
