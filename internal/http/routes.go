package http

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NikolozR/suliko-client/internal/config"
	"github.com/NikolozR/suliko-client/internal/lifecycle"
	"github.com/NikolozR/suliko-client/internal/services"
	"github.com/NikolozR/suliko-client/internal/session"
	"github.com/NikolozR/suliko-client/internal/storage"
	"github.com/NikolozR/suliko-client/internal/suggest"
)

type API struct {
	cfg      config.Config
	sessions *session.Store
	tracker  *lifecycle.Tracker
	suggest  *suggest.Engine
	pdf      *services.PDFService
	share    *services.ShareService
	exports  *storage.ExportManager
}

func NewAPI(cfg config.Config, sessions *session.Store, tracker *lifecycle.Tracker, engine *suggest.Engine, pdf *services.PDFService, share *services.ShareService, exports *storage.ExportManager) *API {
	return &API{cfg: cfg, sessions: sessions, tracker: tracker, suggest: engine, pdf: pdf, share: share, exports: exports}
}

func registerRoutes(r *gin.Engine, api *API) {
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)

		apiGroup.POST("/sessions", api.handleOpenSession)
		apiGroup.GET("/sessions/:id", api.handleGetSession)
		apiGroup.DELETE("/sessions/:id", api.handleCloseSession)
		apiGroup.PATCH("/sessions/:id/content", api.handleEditContent)

		apiGroup.POST("/sessions/:id/suggestions/:sid/accept", api.handleAcceptSuggestion)
		apiGroup.POST("/sessions/:id/suggestions/:sid/reject", api.handleRejectSuggestion)
		apiGroup.PATCH("/sessions/:id/suggestions/:sid", api.handleEditSuggestion)

		apiGroup.GET("/sessions/:id/original-file", api.handleOriginalFile)
		apiGroup.POST("/sessions/:id/pdf", api.handleExportPDF)
		apiGroup.POST("/sessions/:id/share", api.handleShareExport)
	}

	r.GET("/export/:id", api.handleServeExport)
}

// sessionView is the state snapshot handed to the UI: the session plus
// the display-only fields derived from it on every read.
type sessionView struct {
	session.Session
	ElapsedSeconds   int    `json:"elapsedSeconds"`
	PhaseMessage     string `json:"phaseMessage,omitempty"`
	EstimatedPages   int    `json:"estimatedPages"`
	EstimatedWords   int    `json:"estimatedWords"`
	EstimatedMinutes int    `json:"estimatedMinutes"`
}

func (a *API) view(sess session.Session) sessionView {
	createdAt := sess.Job.CreatedAt
	if createdAt.IsZero() {
		createdAt = sess.OpenedAt
	}
	elapsed := lifecycle.Elapsed(createdAt, sess.CompletedAt, time.Now())

	view := sessionView{
		Session:          sess,
		ElapsedSeconds:   int(elapsed.Seconds()),
		EstimatedPages:   sess.Job.EstimatedPages(),
		EstimatedWords:   sess.Job.EstimatedWords(),
		EstimatedMinutes: sess.Job.EstimatedMinutes(),
	}
	if !sess.Status.IsTerminal() {
		view.PhaseMessage = lifecycle.PhaseMessage(elapsed)
	}
	return view
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleOpenSession(c *gin.Context) {
	var payload struct {
		ChatID string `json:"chatId" binding:"required"`
		JobID  string `json:"jobId"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	chatID := strings.TrimSpace(payload.ChatID)

	// Opening a chat replaces its existing session; the old session's
	// poll loop must stop, not just have its writes discarded.
	for _, id := range a.sessions.SessionsForChat(chatID) {
		a.tracker.Stop(id)
	}

	sess := a.sessions.Open(chatID, strings.TrimSpace(payload.JobID))
	a.tracker.Track(sess.ID)

	c.JSON(http.StatusCreated, a.view(sess))
}

func (a *API) handleGetSession(c *gin.Context) {
	sess, err := a.sessions.Get(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}

	c.JSON(http.StatusOK, a.view(sess))
}

func (a *API) handleCloseSession(c *gin.Context) {
	sessionID := c.Param("id")

	a.tracker.Stop(sessionID)
	if err := a.sessions.Close(sessionID); err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}
	a.exports.Remove(sessionID)

	c.Status(http.StatusNoContent)
}

func (a *API) handleEditContent(c *gin.Context) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	err := a.sessions.Update(c.Param("id"), func(sess *session.Session) {
		sess.TranslatedMarkdown = payload.Content
	})
	if err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}

	sess, _ := a.sessions.Get(c.Param("id"))
	c.JSON(http.StatusOK, a.view(sess))
}

func (a *API) handleAcceptSuggestion(c *gin.Context) {
	sessionID := c.Param("id")
	suggestionID := c.Param("sid")

	if err := a.suggest.Accept(c.Request.Context(), sessionID, suggestionID); err != nil {
		switch err {
		case session.ErrSessionNotFound:
			respondMessage(c, http.StatusNotFound, "session not found")
		case session.ErrSuggestionNotFound:
			respondMessage(c, http.StatusNotFound, "suggestion not found")
		default:
			// Apply failure is scoped to this one suggestion; the
			// document itself is untouched.
			respondError(c, http.StatusBadGateway, err)
		}
		return
	}

	sess, err := a.sessions.Get(sessionID)
	if err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}
	c.JSON(http.StatusOK, a.view(sess))
}

func (a *API) handleRejectSuggestion(c *gin.Context) {
	if err := a.suggest.Reject(c.Param("id"), c.Param("sid")); err != nil {
		respondMessage(c, http.StatusNotFound, err.Error())
		return
	}

	sess, err := a.sessions.Get(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}
	c.JSON(http.StatusOK, a.view(sess))
}

func (a *API) handleEditSuggestion(c *gin.Context) {
	var payload struct {
		SuggestedText string `json:"suggestedText" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	if err := a.suggest.EditSuggestedText(c.Param("id"), c.Param("sid"), payload.SuggestedText); err != nil {
		respondMessage(c, http.StatusNotFound, err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) handleOriginalFile(c *gin.Context) {
	sess, err := a.sessions.Get(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}

	if sess.OriginalFile == nil {
		respondMessage(c, http.StatusNotFound, "no original file available")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sess.OriginalFile.Name))
	c.Data(http.StatusOK, sess.OriginalFile.ContentType, sess.OriginalFile.Data)
}

func (a *API) handleExportPDF(c *gin.Context) {
	sessionID := c.Param("id")
	sess, err := a.sessions.Get(sessionID)
	if err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}

	if strings.TrimSpace(sess.TranslatedMarkdown) == "" {
		respondMessage(c, http.StatusBadRequest, "session has no translated content")
		return
	}

	var rendered bytes.Buffer
	if err := a.pdf.GeneratePDF(sess.Job, sess.TranslatedMarkdown, &rendered); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	pdfPath, err := a.exports.SavePDF(sessionID, &rendered)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pdfPath": pdfPath})
}

func (a *API) handleShareExport(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := a.sessions.Get(sessionID); err != nil {
		respondMessage(c, http.StatusNotFound, "session not found")
		return
	}

	if _, err := os.Stat(a.exports.PDFPath(sessionID)); err != nil {
		respondMessage(c, http.StatusBadRequest, "no pdf export for this session")
		return
	}

	url, expiresAt, err := a.share.Generate(sessionID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "expiresAt": expiresAt.UTC()})
}

func (a *API) handleServeExport(c *gin.Context) {
	sessionID := c.Param("id")
	expiresParam := c.Query("exp")
	signature := c.Query("sig")

	if expiresParam == "" || signature == "" {
		respondMessage(c, http.StatusBadRequest, "missing signature")
		return
	}

	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid expiration")
		return
	}

	if expires < time.Now().Unix() {
		respondMessage(c, http.StatusGone, "link expired")
		return
	}

	path := c.Request.URL.Path
	if !a.share.Validate(path, expires, signature) {
		respondMessage(c, http.StatusForbidden, "invalid signature")
		return
	}

	pdfPath := a.exports.PDFPath(sessionID)
	if _, err := os.Stat(pdfPath); err != nil {
		respondMessage(c, http.StatusNotFound, "pdf not found")
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(pdfPath, filepath.Base(pdfPath))
}

func respondError(c *gin.Context, status int, err error) {
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
