package randomnesssvc

import (
	"net/http"

	"github.com/R3E-Network/starknet_randomness/internal/metrics"
	"github.com/R3E-Network/starknet_randomness/internal/middleware"
)

// =============================================================================
// API Routes
// =============================================================================

func (s *Service) registerRoutes(cfg Config) {
	router := s.router
	router.Use(middleware.RecoveryMiddleware(s.logger))
	router.Use(middleware.LoggingMiddleware(s.logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.NewCORSMiddleware(cfg.CORSOrigins).Handler)

	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	router.HandleFunc("/status", s.handleStatus).Methods("GET")

	api := router.NewRoute().Subrouter()
	if cfg.RateLimit > 0 {
		api.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.Burst, s.logger).Handler)
	}
	api.HandleFunc("/randomness/preview", s.handlePreview).Methods("POST", "OPTIONS")
	api.HandleFunc("/randomness", s.handleGenerate).Methods("POST", "OPTIONS")
	api.HandleFunc("/randomness/history", s.handleListHistory).Methods("GET")
	api.HandleFunc("/randomness/history/{id}", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/randomness/generations/{id}/numbers", s.handleGetNumbers).Methods("GET")

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.NewAuthMiddleware(cfg.AdminSecret, s.logger).Handler)
	admin.HandleFunc("/vrf-coordinator", s.handleSetCoordinator).Methods("POST")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
}
