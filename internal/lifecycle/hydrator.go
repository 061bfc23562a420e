package lifecycle

import (
	"context"
	"encoding/base64"
	"log/slog"

	"github.com/NikolozR/suliko-client/internal/domain"
	"github.com/NikolozR/suliko-client/internal/metrics"
	"github.com/NikolozR/suliko-client/internal/session"
)

const (
	fallbackFileName    = "original"
	fallbackContentType = "application/octet-stream"
)

// FileService fetches the document originally uploaded for a chat.
type FileService interface {
	OriginalFile(ctx context.Context, chatID string) (domain.RawFile, error)
}

// Hydrator assembles the displayable result for a completed job: the
// original file (primary fetch, then embedded base64 fallback) and the
// translated text. Neither stage surfaces errors; a missing file is a
// valid, displayable state.
type Hydrator struct {
	files     FileService
	sessions  *session.Store
	logger    *slog.Logger
	collector *metrics.Collector
}

func NewHydrator(files FileService, sessions *session.Store, logger *slog.Logger, collector *metrics.Collector) *Hydrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hydrator{files: files, sessions: sessions, logger: logger, collector: collector}
}

// Hydrate reconciles the job's result into the session. It writes only
// through the store, so a session closed or replaced mid-flight absorbs
// the results silently. Sessions already hydrated, or now tracking a
// different chat, are left alone.
func (h *Hydrator) Hydrate(ctx context.Context, sessionID string, job domain.Job, result domain.TranslationResult) {
	sess, err := h.sessions.Get(sessionID)
	if err != nil || sess.Hydrated || sess.ChatID != job.ChatID {
		return
	}

	file := h.reconstructFile(ctx, job, result)

	err = h.sessions.Update(sessionID, func(sess *session.Session) {
		if sess.Hydrated || sess.ChatID != job.ChatID {
			return
		}

		sess.OriginalFile = file

		// Prefer content already held in memory over the fetched result,
		// and set it exactly once per hydration pass.
		if sess.TranslatedMarkdown == "" && result.TranslatedContent != "" {
			sess.TranslatedMarkdown = result.TranslatedContent
		}

		sess.Hydrated = true
	})
	if err == nil {
		h.collector.RecordHydration(file != nil)
	}
}

// reconstructFile tries the primary fetch first and falls back to the
// embedded base64 payload. Every failure path yields nil, never an error.
func (h *Hydrator) reconstructFile(ctx context.Context, job domain.Job, result domain.TranslationResult) *domain.ReconstructedFile {
	raw, err := h.files.OriginalFile(ctx, job.ChatID)
	if err == nil {
		return wrapRawFile(raw, job.OriginalFileName)
	}

	h.logger.Warn("primary file fetch failed, trying embedded payload", "chatId", job.ChatID, "error", err)
	return decodeEmbeddedFile(result)
}

func wrapRawFile(raw domain.RawFile, originalName string) *domain.ReconstructedFile {
	name := raw.Name
	if name == "" {
		name = originalName
	}
	if name == "" {
		name = fallbackFileName
	}

	contentType := raw.ContentType
	if contentType == "" {
		contentType = fallbackContentType
	}

	return &domain.ReconstructedFile{
		Name:        name,
		ContentType: contentType,
		Data:        raw.Data,
		Size:        len(raw.Data),
	}
}

func decodeEmbeddedFile(result domain.TranslationResult) *domain.ReconstructedFile {
	if result.FileData == "" || result.FileName == "" || result.ContentType == "" {
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(result.FileData)
	if err != nil {
		return nil
	}

	return &domain.ReconstructedFile{
		Name:        result.FileName,
		ContentType: result.ContentType,
		Data:        data,
		Size:        len(data),
	}
}
