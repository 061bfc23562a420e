package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikolozR/suliko-client/internal/domain"
)

func TestJobStatus(t *testing.T) {
	backend, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/j1/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(domain.StatusUpdate{Status: domain.StatusInProgress})
	}))

	update, err := backend.JobStatus(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, update.Status)
}

func TestJobStatusRequiresID(t *testing.T) {
	backend, _ := newTestServices(t, http.NotFoundHandler())
	_, err := backend.JobStatus(context.Background(), "")
	require.Error(t, err)
}

func TestChatDecodesEmbeddedResult(t *testing.T) {
	createdAt := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	backend, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chats/c1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(domain.Chat{
			ChatID: "c1",
			Job: domain.Job{
				JobID:     "j1",
				ChatID:    "c1",
				Status:    domain.StatusCompleted,
				CreatedAt: createdAt,
			},
			Result: &domain.TranslationResult{TranslatedContent: "body"},
		})
	}))

	chat, err := backend.Chat(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "j1", chat.Job.JobID)
	assert.True(t, chat.Job.CreatedAt.Equal(createdAt))
	require.NotNil(t, chat.Result)
	assert.Equal(t, "body", chat.Result.TranslatedContent)
}

func TestOriginalFileWithHeaders(t *testing.T) {
	backend, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))

	file, err := backend.OriginalFile(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", file.Name)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, []byte("%PDF-1.7"), file.Data)
}

func TestOriginalFileRawBinary(t *testing.T) {
	backend, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0x01, 0x02})
	}))

	file, err := backend.OriginalFile(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, file.Name, "raw answers carry no name; the hydrator supplies one")
	assert.Empty(t, file.ContentType)
	assert.Len(t, file.Data, 2)
}

func TestJobResultReturnsRawBody(t *testing.T) {
	backend, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/j1/result", r.URL.Path)
		_, _ = w.Write([]byte("# Translated\n\nbody"))
	}))

	content, err := backend.JobResult(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, "# Translated\n\nbody", content)
}

func TestDecodeAPIError(t *testing.T) {
	backend, _ := newTestServices(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "upstream translation engine down"})
	}))

	_, err := backend.JobStatus(context.Background(), "j1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "upstream translation engine down")
}
