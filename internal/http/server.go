package http

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NikolozR/suliko-client/internal/config"
	"github.com/NikolozR/suliko-client/internal/lifecycle"
	"github.com/NikolozR/suliko-client/internal/metrics"
	"github.com/NikolozR/suliko-client/internal/services"
	"github.com/NikolozR/suliko-client/internal/session"
	"github.com/NikolozR/suliko-client/internal/storage"
	"github.com/NikolozR/suliko-client/internal/suggest"
)

type Server struct {
	engine  *gin.Engine
	cfg     config.Config
	tracker *lifecycle.Tracker
}

func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	if logger == nil {
		logger = slog.Default()
	}

	exports, err := storage.NewExportManager(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init export manager: %w", err)
	}

	sessions := session.NewStore()
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	backend := services.NewBackendService(cfg)
	suggestionSvc := services.NewSuggestionService(backend)
	pdfSvc := services.NewPDFService()
	shareSvc := services.NewShareService(cfg)

	poller := lifecycle.NewPoller(backend, cfg.PollInterval, cfg.TransportRetry, logger, collector)
	hydrator := lifecycle.NewHydrator(backend, sessions, logger, collector)
	engine := suggest.NewEngine(suggestionSvc, sessions, cfg.SuggestionMaxAttempts, cfg.SuggestionRetry, cfg.MaxSuggestions, logger, collector)
	tracker := lifecycle.NewTracker(sessions, backend, backend, poller, hydrator, engine, logger, collector)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(MaxBodySize(cfg.MaxBodyBytes))
	router.Use(CORS())

	api := NewAPI(cfg, sessions, tracker, engine, pdfSvc, shareSvc, exports)
	registerRoutes(router, api)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{engine: router, cfg: cfg, tracker: tracker}, nil
}

func (s *Server) Run() error {
	defer s.tracker.StopAll()

	addr := fmt.Sprintf(":%s", s.cfg.Port)
	return s.engine.Run(addr)
}
