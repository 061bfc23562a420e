package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/NikolozR/suliko-client/internal/domain"
	"github.com/NikolozR/suliko-client/internal/metrics"
	"github.com/NikolozR/suliko-client/internal/session"
)

// ChatService fetches the project record owning a job.
type ChatService interface {
	Chat(ctx context.Context, chatID string) (domain.Chat, error)
}

// ResultService fetches the raw translated content of a completed job.
type ResultService interface {
	JobResult(ctx context.Context, jobID string) (string, error)
}

// SuggestionRunner is the post-hydration hook into the suggestion engine.
type SuggestionRunner interface {
	Seed(sessionID string, suggestions []domain.Suggestion)
	FetchLoop(ctx context.Context, sessionID, jobID string)
}

// Tracker owns the lifecycle of every tracked session: it polls the job
// to a terminal status, hydrates the result, and kicks off the suggestion
// fetch. Each session gets its own goroutine and cancel function;
// closing a session cancels the run, and the session store drops any
// write that arrives after that.
type Tracker struct {
	sessions    *session.Store
	chats       ChatService
	results     ResultService
	poller      *Poller
	hydrator    *Hydrator
	suggestions SuggestionRunner
	logger      *slog.Logger
	collector   *metrics.Collector

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewTracker(sessions *session.Store, chats ChatService, results ResultService, poller *Poller, hydrator *Hydrator, suggestions SuggestionRunner, logger *slog.Logger, collector *metrics.Collector) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		sessions:    sessions,
		chats:       chats,
		results:     results,
		poller:      poller,
		hydrator:    hydrator,
		suggestions: suggestions,
		logger:      logger,
		collector:   collector,
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Track starts driving a session in the background.
func (t *Tracker) Track(sessionID string) {
	ctx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	t.cancels[sessionID] = cancel
	t.mu.Unlock()

	t.collector.SetActiveSessions(t.sessions.Len())

	go func() {
		defer t.Stop(sessionID)
		t.run(ctx, sessionID)
	}()
}

// Stop cancels the background run for a session, if one is still active.
func (t *Tracker) Stop(sessionID string) {
	t.mu.Lock()
	cancel, ok := t.cancels[sessionID]
	if ok {
		delete(t.cancels, sessionID)
	}
	t.mu.Unlock()

	if ok {
		cancel()
	}
	t.collector.SetActiveSessions(t.sessions.Len())
}

// StopAll cancels every active run. Used on shutdown.
func (t *Tracker) StopAll() {
	t.mu.Lock()
	cancels := t.cancels
	t.cancels = make(map[string]context.CancelFunc)
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (t *Tracker) run(ctx context.Context, sessionID string) {
	sess, err := t.sessions.Get(sessionID)
	if err != nil {
		return
	}

	job, result := t.refreshChat(ctx, sessionID, sess)

	if job.Status.IsTerminal() {
		// Terminal states are never re-polled; at most finish a missing
		// hydration for an already-completed job.
		if job.Status == domain.StatusCompleted {
			t.finalize(ctx, sessionID, job, result)
		}
		return
	}

	outcome, err := t.poller.Run(ctx, job.JobID, job.Status)
	if err != nil {
		t.logger.Debug("polling stopped", "sessionId", sessionID, "error", err)
		return
	}

	switch outcome.Status {
	case domain.StatusFailed:
		now := time.Now()
		_ = t.sessions.Update(sessionID, func(sess *session.Session) {
			sess.Status = domain.StatusFailed
			sess.Job.Status = domain.StatusFailed
			sess.ErrorMessage = outcome.Message
			sess.CompletedAt = &now
		})
		t.collector.RecordJobFailed()
		t.logger.Info("translation failed", "jobId", job.JobID, "reason", outcome.Message)

	case domain.StatusCompleted:
		// Refetch the chat so hydration sees the freshest embedded
		// result, then fall back to the raw result endpoint for text.
		job, result = t.refreshChat(ctx, sessionID, sess)
		job.Status = domain.StatusCompleted
		t.finalize(ctx, sessionID, job, result)
	}
}

// refreshChat pulls the chat record and folds its job metadata into the
// session. A fetch failure is non-fatal; tracking continues with what the
// session already holds.
func (t *Tracker) refreshChat(ctx context.Context, sessionID string, sess session.Session) (domain.Job, domain.TranslationResult) {
	job := sess.Job
	if job.JobID == "" {
		job.JobID = sess.JobID
	}
	if job.ChatID == "" {
		job.ChatID = sess.ChatID
	}
	if job.Status == "" {
		job.Status = sess.Status
	}
	var result domain.TranslationResult

	chat, err := t.chats.Chat(ctx, sess.ChatID)
	if err != nil {
		t.logger.Warn("chat fetch failed", "chatId", sess.ChatID, "error", err)
		return job, result
	}

	job = chat.Job
	if job.ChatID == "" {
		job.ChatID = sess.ChatID
	}
	if job.JobID == "" {
		job.JobID = sess.JobID
	}
	if chat.Result != nil {
		result = *chat.Result
	}

	_ = t.sessions.Update(sessionID, func(sess *session.Session) {
		sess.Job = job
		if sess.JobID == "" {
			sess.JobID = job.JobID
		}
		// Status is monotonic: never move a locally terminal session
		// back to an in-progress state, even when the chat record lags.
		if sess.Status.IsTerminal() {
			sess.Job.Status = sess.Status
		} else {
			sess.Status = job.Status
		}
	})

	return job, result
}

// finalize hydrates a completed job, marks the session completed, seeds
// the embedded suggestions, and starts the suggestion fetch loop.
func (t *Tracker) finalize(ctx context.Context, sessionID string, job domain.Job, result domain.TranslationResult) {
	if result.TranslatedContent == "" {
		text, err := t.results.JobResult(ctx, job.JobID)
		if err != nil {
			t.logger.Warn("result fetch failed", "jobId", job.JobID, "error", err)
		} else {
			result.TranslatedContent = text
		}
	}

	t.hydrator.Hydrate(ctx, sessionID, job, result)

	now := time.Now()
	err := t.sessions.Update(sessionID, func(sess *session.Session) {
		sess.Status = domain.StatusCompleted
		sess.Job.Status = domain.StatusCompleted
		if sess.CompletedAt == nil {
			sess.CompletedAt = &now
		}
	})
	if err != nil {
		return
	}

	t.collector.RecordJobCompleted()

	if t.suggestions != nil {
		t.suggestions.Seed(sessionID, result.Suggestions)
		t.suggestions.FetchLoop(ctx, sessionID, job.JobID)
	}
}
