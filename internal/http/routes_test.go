package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NikolozR/suliko-client/internal/config"
	"github.com/NikolozR/suliko-client/internal/domain"
	"github.com/NikolozR/suliko-client/internal/lifecycle"
	"github.com/NikolozR/suliko-client/internal/services"
	"github.com/NikolozR/suliko-client/internal/session"
	"github.com/NikolozR/suliko-client/internal/storage"
	"github.com/NikolozR/suliko-client/internal/suggest"
)

// fakeBackend simulates the Suliko API: one job that completes on the
// second status poll, with an original file and one suggestion.
type fakeBackend struct {
	mu          sync.Mutex
	statusPolls int
	applyCalls  int
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/jobs/j1/status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.statusPolls++
		polls := f.statusPolls
		f.mu.Unlock()

		status := domain.StatusInProgress
		if polls >= 2 {
			status = domain.StatusCompleted
		}
		_ = json.NewEncoder(w).Encode(domain.StatusUpdate{Status: status})
	})

	mux.HandleFunc("/api/chats/c1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.Chat{
			ChatID: "c1",
			Job: domain.Job{
				JobID:            "j1",
				ChatID:           "c1",
				Status:           domain.StatusInProgress,
				CreatedAt:        time.Now(),
				OriginalFileName: "report.pdf",
				TargetLanguageID: 2,
			},
			Result: &domain.TranslationResult{TranslatedContent: "The colour of the sky."},
		})
	})

	mux.HandleFunc("/api/chats/c1/original-file", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.7"))
	})

	mux.HandleFunc("/api/jobs/j1/suggestions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jobId":           "j1",
			"suggestionCount": 1,
			"suggestions": []map[string]string{
				{"id": "s1", "title": "Spelling", "description": "US spelling", "originalText": "colour", "suggestedText": "color"},
			},
		})
	})

	mux.HandleFunc("/api/suggestions/apply", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.applyCalls++
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(domain.ApplyResult{Success: true, UpdatedContent: "patched"})
	})

	return mux
}

func setupTestServer(t *testing.T) (*gin.Engine, *session.Store, *fakeBackend) {
	t.Helper()

	backend := &fakeBackend{}
	router, sessions := setupTestServerWith(t, backend.handler())
	return router, sessions, backend
}

func setupTestServerWith(t *testing.T, upstreamHandler http.Handler) (*gin.Engine, *session.Store) {
	t.Helper()

	upstream := httptest.NewServer(upstreamHandler)
	t.Cleanup(upstream.Close)

	cfg := config.Config{
		Port:                  "8090",
		APIBaseURL:            upstream.URL,
		PollInterval:          5 * time.Millisecond,
		TransportRetry:        5 * time.Millisecond,
		SuggestionRetry:       5 * time.Millisecond,
		SuggestionMaxAttempts: 3,
		MaxSuggestions:        10,
		ShareSecret:           "secret",
		ShareTTL:              time.Minute,
		BaseURL:               "http://localhost:8090",
		DataDir:               t.TempDir(),
	}

	exports, err := storage.NewExportManager(cfg.DataDir)
	if err != nil {
		t.Fatalf("export manager: %v", err)
	}

	sessions := session.NewStore()
	backendSvc := services.NewBackendService(cfg)
	suggestionSvc := services.NewSuggestionService(backendSvc)

	poller := lifecycle.NewPoller(backendSvc, cfg.PollInterval, cfg.TransportRetry, nil, nil)
	hydrator := lifecycle.NewHydrator(backendSvc, sessions, nil, nil)
	engine := suggest.NewEngine(suggestionSvc, sessions, cfg.SuggestionMaxAttempts, cfg.SuggestionRetry, cfg.MaxSuggestions, nil, nil)
	tracker := lifecycle.NewTracker(sessions, backendSvc, backendSvc, poller, hydrator, engine, nil, nil)
	t.Cleanup(tracker.StopAll)

	router := gin.New()
	router.Use(gin.Recovery())
	api := NewAPI(cfg, sessions, tracker, engine, services.NewPDFService(), services.NewShareService(cfg), exports)
	registerRoutes(router, api)

	return router, sessions
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if ok, exists := body["ok"].(bool); !exists || !ok {
		t.Fatalf("expected ok=true, body=%v", body)
	}
}

func TestOpenSessionMissingChat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/unknown", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, _, backend := setupTestServer(t)

	openReq := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"chatId":"c1","jobId":"j1"}`))
	openReq.Header.Set("Content-Type", "application/json")
	openRec := httptest.NewRecorder()

	router.ServeHTTP(openRec, openReq)

	if openRec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", openRec.Code, openRec.Body.String())
	}

	var opened struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(openRec.Body.Bytes(), &opened); err != nil {
		t.Fatalf("decode open response: %v", err)
	}

	var view struct {
		Status             domain.JobStatus    `json:"status"`
		Hydrated           bool                `json:"hydrated"`
		TranslatedMarkdown string              `json:"translatedMarkdown"`
		Suggestions        []domain.Suggestion `json:"suggestions"`
		OriginalFile       *struct {
			Name string `json:"name"`
		} `json:"originalFile"`
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("session never settled: %+v", view)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+opened.ID, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("decode session view: %v", err)
		}

		if view.Status == domain.StatusCompleted && view.Hydrated && len(view.Suggestions) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if view.TranslatedMarkdown != "The colour of the sky." {
		t.Fatalf("unexpected translated text: %q", view.TranslatedMarkdown)
	}
	if view.OriginalFile == nil || view.OriginalFile.Name != "report.pdf" {
		t.Fatalf("expected reconstructed file report.pdf, got %+v", view.OriginalFile)
	}

	// Exact-match acceptance stays local: backend apply must not be hit.
	acceptReq := httptest.NewRequest(http.MethodPost, "/api/sessions/"+opened.ID+"/suggestions/s1/accept", nil)
	acceptRec := httptest.NewRecorder()
	router.ServeHTTP(acceptRec, acceptReq)

	if acceptRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", acceptRec.Code, acceptRec.Body.String())
	}

	var after struct {
		TranslatedMarkdown string              `json:"translatedMarkdown"`
		Suggestions        []domain.Suggestion `json:"suggestions"`
		SuggestionAccepted bool                `json:"suggestionAccepted"`
	}
	if err := json.Unmarshal(acceptRec.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode accept response: %v", err)
	}

	if after.TranslatedMarkdown != "The color of the sky." {
		t.Fatalf("expected local replacement, got %q", after.TranslatedMarkdown)
	}
	if len(after.Suggestions) != 0 {
		t.Fatalf("expected suggestion removed, got %d", len(after.Suggestions))
	}
	if !after.SuggestionAccepted {
		t.Fatalf("expected suggestionAccepted=true")
	}

	backend.mu.Lock()
	applyCalls := backend.applyCalls
	backend.mu.Unlock()
	if applyCalls != 0 {
		t.Fatalf("exact-match apply must not call the remote endpoint, got %d calls", applyCalls)
	}
}

func TestReopenSessionStopsReplacedPollLoop(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var mu sync.Mutex
	polls := map[string]int{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) > 3 {
			mu.Lock()
			polls[parts[3]]++
			mu.Unlock()
		}
		_ = json.NewEncoder(w).Encode(domain.StatusUpdate{Status: domain.StatusInProgress})
	})
	mux.HandleFunc("/api/chats/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	router, _ := setupTestServerWith(t, mux)

	open := func(body string) {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d body %s", rec.Code, rec.Body.String())
		}
	}

	open(`{"chatId":"c1","jobId":"j1"}`)
	time.Sleep(30 * time.Millisecond)

	// Re-opening the same chat replaces the session; the old job's poll
	// loop must stop with it.
	open(`{"chatId":"c1","jobId":"j2"}`)
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	settled := polls["j1"]
	mu.Unlock()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	after := polls["j1"]
	fresh := polls["j2"]
	mu.Unlock()

	if after != settled {
		t.Fatalf("replaced session kept polling: %d extra polls for j1", after-settled)
	}
	if fresh == 0 {
		t.Fatal("new session never polled its job")
	}
}

func TestEditContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, sessions, _ := setupTestServer(t)

	sess := sessions.Open("c9", "j9")

	req := httptest.NewRequest(http.MethodPatch, "/api/sessions/"+sess.ID+"/content", strings.NewReader(`{"content":"my edit"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	got, err := sessions.Get(sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.TranslatedMarkdown != "my edit" {
		t.Fatalf("expected edited content, got %q", got.TranslatedMarkdown)
	}
}

func TestOriginalFileMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, sessions, _ := setupTestServer(t)

	sess := sessions.Open("c9", "j9")

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/original-file", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestShareLinkValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, sessions, _ := setupTestServer(t)

	sess := sessions.Open("c9", "j9")
	if err := sessions.Update(sess.ID, func(s *session.Session) {
		s.TranslatedMarkdown = "# Title\n\nTranslated body."
	}); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	pdfReq := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/pdf", nil)
	pdfRec := httptest.NewRecorder()
	router.ServeHTTP(pdfRec, pdfReq)

	if pdfRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", pdfRec.Code, pdfRec.Body.String())
	}

	shareReq := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/share", strings.NewReader("{}"))
	shareReq.Header.Set("Content-Type", "application/json")
	shareRec := httptest.NewRecorder()
	router.ServeHTTP(shareRec, shareReq)

	if shareRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", shareRec.Code)
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(shareRec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode share response: %v", err)
	}
	if body.URL == "" {
		t.Fatalf("expected url in response")
	}

	invalidReq := httptest.NewRequest(http.MethodGet, "/export/"+sess.ID+"?exp=9999999999&sig=invalid", nil)
	invalidRec := httptest.NewRecorder()
	router.ServeHTTP(invalidRec, invalidReq)

	if invalidRec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for invalid signature, got %d", invalidRec.Code)
	}

	expiredReq := httptest.NewRequest(http.MethodGet, "/export/"+sess.ID+"?exp=1&sig=whatever", nil)
	expiredRec := httptest.NewRecorder()
	router.ServeHTTP(expiredRec, expiredReq)

	if expiredRec.Code != http.StatusGone {
		t.Fatalf("expected 410 for expired link, got %d", expiredRec.Code)
	}
}
