package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/NikolozR/suliko-client/internal/domain"
)

// SuggestionService covers the post-translation improvement endpoints:
// fetching suggestion batches and delegated text patching.
type SuggestionService struct {
	backend *BackendService
}

func NewSuggestionService(backend *BackendService) *SuggestionService {
	return &SuggestionService{backend: backend}
}

// suggestionsPayload is the wire shape of the suggestions endpoint. The
// backend discriminates its answers by field presence, so everything is
// optional here and Fetch turns the mess into a tagged SuggestionBatch.
type suggestionsPayload struct {
	Status          string              `json:"status,omitempty"`
	JobID           string              `json:"jobId,omitempty"`
	SuggestionCount int                 `json:"suggestionCount"`
	Suggestions     []domain.Suggestion `json:"suggestions,omitempty"`
}

// Fetch retrieves one suggestions answer for a job. Placeholder rows with
// no description, original text, or suggested text are dropped before the
// batch is returned.
func (s *SuggestionService) Fetch(ctx context.Context, jobID string) (domain.SuggestionBatch, error) {
	if jobID == "" {
		return domain.SuggestionBatch{}, errors.New("job id is required")
	}

	resp, err := s.backend.get(ctx, "/api/jobs/"+url.PathEscape(jobID)+"/suggestions")
	if err != nil {
		return domain.SuggestionBatch{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.SuggestionBatch{}, s.backend.decodeAPIError(resp)
	}

	var payload suggestionsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.SuggestionBatch{}, fmt.Errorf("decode suggestions response: %w", err)
	}

	return decodeBatch(payload), nil
}

func decodeBatch(payload suggestionsPayload) domain.SuggestionBatch {
	status := strings.ToLower(strings.TrimSpace(payload.Status))

	switch {
	case status == "processing":
		return domain.SuggestionBatch{State: domain.BatchProcessing, Status: payload.Status}
	case status != "" && status != "success" && status != "completed":
		return domain.SuggestionBatch{State: domain.BatchTerminal, Status: payload.Status}
	}

	filtered := make([]domain.Suggestion, 0, len(payload.Suggestions))
	for _, suggestion := range payload.Suggestions {
		if suggestion.IsEmpty() {
			continue
		}
		filtered = append(filtered, suggestion)
	}

	return domain.SuggestionBatch{
		State:       domain.BatchReady,
		Status:      payload.Status,
		Suggestions: filtered,
	}
}

// Apply asks the backend to patch the document text for a suggestion
// whose anchor text no longer matches locally.
func (s *SuggestionService) Apply(ctx context.Context, req domain.ApplyRequest) (domain.ApplyResult, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(req); err != nil {
		return domain.ApplyResult{}, fmt.Errorf("encode apply payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.backend.baseURL+"/api/suggestions/apply", buf)
	if err != nil {
		return domain.ApplyResult{}, fmt.Errorf("create apply request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if s.backend.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.backend.apiKey)
	}

	resp, err := s.backend.httpClient.Do(httpReq)
	if err != nil {
		return domain.ApplyResult{}, fmt.Errorf("suliko request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.ApplyResult{}, s.backend.decodeAPIError(resp)
	}

	var result domain.ApplyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.ApplyResult{}, fmt.Errorf("decode apply response: %w", err)
	}

	return result, nil
}
