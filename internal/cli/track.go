package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/NikolozR/suliko-client/internal/domain"
	"github.com/NikolozR/suliko-client/internal/lifecycle"
	"github.com/NikolozR/suliko-client/internal/services"
	"github.com/NikolozR/suliko-client/internal/session"
	"github.com/NikolozR/suliko-client/internal/suggest"
)

var (
	trackChatID  string
	trackJobID   string
	trackOutPath string
	waitForHints bool
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track one translation job to completion and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		if trackChatID == "" {
			return errors.New("--chat is required")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

		sessions := session.NewStore()
		backend := services.NewBackendService(cfg)
		suggestionSvc := services.NewSuggestionService(backend)

		poller := lifecycle.NewPoller(backend, cfg.PollInterval, cfg.TransportRetry, logger, nil)
		hydrator := lifecycle.NewHydrator(backend, sessions, logger, nil)
		engine := suggest.NewEngine(suggestionSvc, sessions, cfg.SuggestionMaxAttempts, cfg.SuggestionRetry, cfg.MaxSuggestions, logger, nil)
		tracker := lifecycle.NewTracker(sessions, backend, backend, poller, hydrator, engine, logger, nil)
		defer tracker.StopAll()

		sess := sessions.Open(trackChatID, trackJobID)
		tracker.Track(sess.ID)

		final, err := watch(ctx, sessions, sess.ID)
		if err != nil {
			return err
		}

		if final.Status == domain.StatusFailed {
			return fmt.Errorf("translation failed: %s", final.ErrorMessage)
		}

		if waitForHints {
			final = awaitSuggestions(ctx, sessions, sess.ID)
			for _, suggestion := range final.Suggestions {
				fmt.Printf("suggestion [%s] %s\n", suggestion.ID, suggestion.Title)
			}
		}

		if trackOutPath != "" {
			if err := os.WriteFile(trackOutPath, []byte(final.TranslatedMarkdown), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("translated text written to %s\n", trackOutPath)
			return nil
		}

		fmt.Println(final.TranslatedMarkdown)
		return nil
	},
}

// watch prints a progress line once per second until the session settles.
func watch(ctx context.Context, sessions *session.Store, sessionID string) (session.Session, error) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return session.Session{}, ctx.Err()
		case <-ticker.C:
		}

		sess, err := sessions.Get(sessionID)
		if err != nil {
			return session.Session{}, err
		}

		createdAt := sess.Job.CreatedAt
		if createdAt.IsZero() {
			createdAt = sess.OpenedAt
		}
		elapsed := lifecycle.Elapsed(createdAt, sess.CompletedAt, time.Now())

		switch {
		case sess.Status == domain.StatusFailed:
			return sess, nil
		case sess.Status == domain.StatusCompleted && sess.Hydrated:
			fmt.Fprintf(os.Stderr, "\rdone in %ds%20s\n", int(elapsed.Seconds()), "")
			return sess, nil
		default:
			fmt.Fprintf(os.Stderr, "\r%-28s %ds elapsed", lifecycle.PhaseMessage(elapsed), int(elapsed.Seconds()))
		}
	}
}

// awaitSuggestions waits for the suggestion fetch loop to settle, bounded
// by the loop's own worst case.
func awaitSuggestions(ctx context.Context, sessions *session.Store, sessionID string) session.Session {
	deadline := time.Now().Add(time.Duration(cfg.SuggestionMaxAttempts+1) * cfg.SuggestionRetry)

	for time.Now().Before(deadline) {
		sess, err := sessions.Get(sessionID)
		if err != nil {
			return session.Session{}
		}
		if sess.SuggestionStatus != "" || len(sess.Suggestions) > 0 {
			return sess
		}

		select {
		case <-ctx.Done():
			return sess
		case <-time.After(time.Second):
		}
	}

	sess, _ := sessions.Get(sessionID)
	return sess
}

func init() {
	trackCmd.Flags().StringVar(&trackChatID, "chat", "", "Chat/project identifier (required)")
	trackCmd.Flags().StringVar(&trackJobID, "job", "", "Job identifier (defaults to the chat's active job)")
	trackCmd.Flags().StringVar(&trackOutPath, "out", "", "Write the translated text to this file instead of stdout")
	trackCmd.Flags().BoolVar(&waitForHints, "suggestions", false, "Wait for improvement suggestions and list them")
	rootCmd.AddCommand(trackCmd)
}
