package suggest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/NikolozR/suliko-client/internal/domain"
	"github.com/NikolozR/suliko-client/internal/metrics"
	"github.com/NikolozR/suliko-client/internal/session"
)

const (
	// DefaultMaxAttempts bounds the suggestion fetch loop; with the
	// default retry interval the worst case is two minutes of waiting on
	// a backend that never produces suggestions.
	DefaultMaxAttempts = 40
	// DefaultRetryInterval is the fixed delay between fetch attempts.
	DefaultRetryInterval = 3 * time.Second
	// DefaultMaxSuggestions caps the active suggestion set.
	DefaultMaxSuggestions = 10

	// StatusReady marks a session whose suggestion set has been
	// populated from a successful fetch.
	StatusReady = "ready"
	// StatusUnavailable marks a session whose fetch loop gave up without
	// suggestions. Not an error: the feature is additive.
	StatusUnavailable = "unavailable"
)

// Service is the remote side of the suggestion engine.
type Service interface {
	Fetch(ctx context.Context, jobID string) (domain.SuggestionBatch, error)
	Apply(ctx context.Context, req domain.ApplyRequest) (domain.ApplyResult, error)
}

// Engine retrieves post-translation suggestions for a job and applies
// accepted ones against the live document, locally when the anchor text
// still matches and through the remote patch service when it does not.
type Engine struct {
	svc            Service
	sessions       *session.Store
	maxAttempts    int
	retryInterval  time.Duration
	maxSuggestions int
	logger         *slog.Logger
	collector      *metrics.Collector
}

func NewEngine(svc Service, sessions *session.Store, maxAttempts int, retryInterval time.Duration, maxSuggestions int, logger *slog.Logger, collector *metrics.Collector) *Engine {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		svc:            svc,
		sessions:       sessions,
		maxAttempts:    maxAttempts,
		retryInterval:  retryInterval,
		maxSuggestions: maxSuggestions,
		logger:         logger,
		collector:      collector,
	}
}

// Seed folds the suggestions embedded in a translation result into the
// session before the fetch loop starts.
func (e *Engine) Seed(sessionID string, suggestions []domain.Suggestion) {
	usable := make([]domain.Suggestion, 0, len(suggestions))
	for _, suggestion := range suggestions {
		if suggestion.IsEmpty() {
			continue
		}
		usable = append(usable, suggestion)
	}
	if len(usable) == 0 {
		return
	}
	_ = e.sessions.MergeSuggestions(sessionID, usable, e.maxSuggestions)
}

// FetchLoop polls the suggestions endpoint until it yields a non-empty
// list, reports a terminal status, throws, or runs out of attempts.
// Every exit short of a populated list degrades to "no suggestions";
// nothing here is fatal to the translation flow.
func (e *Engine) FetchLoop(ctx context.Context, sessionID, jobID string) {
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		batch, err := e.svc.Fetch(ctx, jobID)

		if ctx.Err() != nil {
			return
		}

		if err != nil {
			e.logger.Warn("suggestion fetch failed", "jobId", jobID, "attempt", attempt, "error", err)
			e.markUnavailable(sessionID, StatusUnavailable, false)
			return
		}

		switch batch.State {
		case domain.BatchTerminal:
			e.logger.Info("suggestions ended with terminal status", "jobId", jobID, "status", batch.Status)
			e.markUnavailable(sessionID, batch.Status, true)
			return

		case domain.BatchReady:
			if len(batch.Suggestions) > 0 {
				if err := e.sessions.MergeSuggestions(sessionID, batch.Suggestions, e.maxSuggestions); err != nil {
					return
				}
				_ = e.sessions.Update(sessionID, func(sess *session.Session) {
					sess.SuggestionStatus = StatusReady
				})
				e.collector.RecordSuggestionsFetched(len(batch.Suggestions))
				return
			}
		}

		// No wait after the final attempt.
		if attempt == e.maxAttempts {
			break
		}
		if err := waitCtx(ctx, e.retryInterval); err != nil {
			return
		}
	}

	e.markUnavailable(sessionID, StatusUnavailable, false)
}

// markUnavailable records why the fetch loop stopped. A terminal backend
// status also clears the active set; a transport give-up keeps whatever
// was seeded.
func (e *Engine) markUnavailable(sessionID, status string, clear bool) {
	_ = e.sessions.Update(sessionID, func(sess *session.Session) {
		sess.SuggestionStatus = status
		if clear {
			sess.Suggestions = nil
		}
	})
}

// Accept applies one suggestion to the session's document. When the
// suggestion's original text is still present verbatim the replacement
// happens locally with no network round-trip; otherwise the remote patch
// service decides. A second acceptance of a suggestion already being
// applied is a no-op.
func (e *Engine) Accept(ctx context.Context, sessionID, suggestionID string) error {
	suggestion, err := e.sessions.FindSuggestion(sessionID, suggestionID)
	if err != nil {
		return err
	}

	busy := false
	err = e.sessions.Update(sessionID, func(sess *session.Session) {
		for _, id := range sess.ApplyingSuggestionIDs {
			if id == suggestionID {
				busy = true
				return
			}
		}
		sess.ApplyingSuggestionIDs = append(sess.ApplyingSuggestionIDs, suggestionID)
	})
	if err != nil {
		return err
	}
	if busy {
		return nil
	}

	applyErr := e.apply(ctx, sessionID, suggestion)

	// Release only this suggestion's guard entry; other applies may still
	// be in flight.
	_ = e.sessions.Update(sessionID, func(sess *session.Session) {
		kept := sess.ApplyingSuggestionIDs[:0]
		for _, id := range sess.ApplyingSuggestionIDs {
			if id != suggestionID {
				kept = append(kept, id)
			}
		}
		sess.ApplyingSuggestionIDs = kept
	})

	return applyErr
}

func (e *Engine) apply(ctx context.Context, sessionID string, suggestion domain.Suggestion) error {
	sess, err := e.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	if suggestion.OriginalText != "" && strings.Contains(sess.TranslatedMarkdown, suggestion.OriginalText) {
		err := e.sessions.Update(sessionID, func(sess *session.Session) {
			sess.TranslatedMarkdown = strings.ReplaceAll(sess.TranslatedMarkdown, suggestion.OriginalText, suggestion.SuggestedText)
		})
		if err != nil {
			return err
		}
		e.collector.RecordSuggestionApplied("local")
		return e.finishApply(sessionID, suggestion.ID)
	}

	result, err := e.svc.Apply(ctx, domain.ApplyRequest{
		TranslatedContent: sess.TranslatedMarkdown,
		SuggestionID:      suggestion.ID,
		Suggestion:        suggestion,
		TargetLanguageID:  sess.Job.TargetLanguageID,
	})
	if err != nil {
		return err
	}
	if !result.Success {
		if result.ErrorMessage != "" {
			return errors.New(result.ErrorMessage)
		}
		return errors.New("suggestion could not be applied")
	}

	err = e.sessions.Update(sessionID, func(sess *session.Session) {
		sess.TranslatedMarkdown = result.UpdatedContent
	})
	if err != nil {
		return err
	}
	e.collector.RecordSuggestionApplied("remote")
	return e.finishApply(sessionID, suggestion.ID)
}

func (e *Engine) finishApply(sessionID, suggestionID string) error {
	if err := e.sessions.RemoveSuggestion(sessionID, suggestionID); err != nil {
		return err
	}
	return e.sessions.Update(sessionID, func(sess *session.Session) {
		sess.SuggestionAccepted = true
	})
}

// Reject drops a suggestion without touching the document or the network.
func (e *Engine) Reject(sessionID, suggestionID string) error {
	if _, err := e.sessions.FindSuggestion(sessionID, suggestionID); err != nil {
		return err
	}
	return e.sessions.RemoveSuggestion(sessionID, suggestionID)
}

// EditSuggestedText stores a user edit of a pending suggestion's
// replacement text.
func (e *Engine) EditSuggestedText(sessionID, suggestionID, text string) error {
	return e.sessions.EditSuggestedText(sessionID, suggestionID, text)
}

func waitCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
