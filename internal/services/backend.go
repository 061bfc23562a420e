package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NikolozR/suliko-client/internal/config"
	"github.com/NikolozR/suliko-client/internal/domain"
)

const defaultRequestTimeout = 2 * time.Minute

// BackendService talks to the Suliko translation backend. It covers the
// read side of the job lifecycle: status, chat/project records, raw
// results, and the original uploaded file.
type BackendService struct {
	baseURL    string
	apiKey     string
	reqTimeout time.Duration
	httpClient *http.Client
}

func NewBackendService(cfg config.Config) *BackendService {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &BackendService{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:     cfg.APIKey,
		reqTimeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// JobStatus fetches the current status of a job.
func (s *BackendService) JobStatus(ctx context.Context, jobID string) (domain.StatusUpdate, error) {
	if jobID == "" {
		return domain.StatusUpdate{}, errors.New("job id is required")
	}

	resp, err := s.get(ctx, "/api/jobs/"+url.PathEscape(jobID)+"/status")
	if err != nil {
		return domain.StatusUpdate{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.StatusUpdate{}, s.decodeAPIError(resp)
	}

	var update domain.StatusUpdate
	if err := json.NewDecoder(resp.Body).Decode(&update); err != nil {
		return domain.StatusUpdate{}, fmt.Errorf("decode status response: %w", err)
	}

	return update, nil
}

// JobResult fetches the raw translated content for a completed job.
func (s *BackendService) JobResult(ctx context.Context, jobID string) (string, error) {
	if jobID == "" {
		return "", errors.New("job id is required")
	}

	resp, err := s.get(ctx, "/api/jobs/"+url.PathEscape(jobID)+"/result")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", s.decodeAPIError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read result body: %w", err)
	}

	return string(body), nil
}

// Chat fetches the project record owning a job, including the embedded
// translation result once the job has finished.
func (s *BackendService) Chat(ctx context.Context, chatID string) (domain.Chat, error) {
	if chatID == "" {
		return domain.Chat{}, errors.New("chat id is required")
	}

	resp, err := s.get(ctx, "/api/chats/"+url.PathEscape(chatID))
	if err != nil {
		return domain.Chat{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.Chat{}, s.decodeAPIError(resp)
	}

	var chat domain.Chat
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return domain.Chat{}, fmt.Errorf("decode chat response: %w", err)
	}

	return chat, nil
}

// OriginalFile fetches the document originally uploaded for a chat. Name
// and content type come from the response headers when the backend sends
// them; callers fill in defaults for raw binary answers.
func (s *BackendService) OriginalFile(ctx context.Context, chatID string) (domain.RawFile, error) {
	if chatID == "" {
		return domain.RawFile{}, errors.New("chat id is required")
	}

	resp, err := s.get(ctx, "/api/chats/"+url.PathEscape(chatID)+"/original-file")
	if err != nil {
		return domain.RawFile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.RawFile{}, s.decodeAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.RawFile{}, fmt.Errorf("read original file: %w", err)
	}

	file := domain.RawFile{Data: data}

	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			file.Name = params["filename"]
		}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		file.ContentType = ct
	}

	return file, nil
}

func (s *BackendService) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("suliko request failed: %w", err)
	}

	return resp, nil
}

func (s *BackendService) decodeAPIError(resp *http.Response) error {
	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	body, _ := io.ReadAll(resp.Body)

	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error != "" {
			return fmt.Errorf("suliko api error: status %d message %s", resp.StatusCode, apiErr.Error)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("suliko api error: status %d message %s", resp.StatusCode, apiErr.Message)
		}
	}

	return fmt.Errorf("suliko api error: status %d body %s", resp.StatusCode, string(body))
}
