package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/gridbalancer/pkg/demand"
	"github.com/raterudder/gridbalancer/pkg/grid"
	"github.com/raterudder/gridbalancer/pkg/log"
	"github.com/raterudder/gridbalancer/pkg/metrics"
	"github.com/raterudder/gridbalancer/pkg/search"
	"github.com/raterudder/gridbalancer/pkg/storage"
	"github.com/raterudder/gridbalancer/pkg/weather"
)

// tokenVerifier is a function that validates a Google ID Token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// Server handles the HTTP API of the grid balancer. It runs balancing cycles
// by combining weather, demand and the per-grid optimizers and persists the
// results.
type Server struct {
	grids   *grid.Map
	weather *weather.Service
	demand  *demand.Predictor
	storage storage.Database
	search  *search.Engine
	limiter *rateLimiter

	listenAddr string
	httpServer *http.Server

	adminEmails   []string
	oidcVerifier  tokenVerifier
	bypassAuth    bool
	historyWindow int
	serverName    string
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(g *grid.Map, w *weather.Service, d *demand.Predictor, s storage.Database) *Server {
	srv := &Server{
		grids:      g,
		weather:    w,
		demand:     d,
		storage:    s,
		search:     search.New(s),
		serverName: "gridbalancer",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	adminEmails := lflag.String("admin-emails", "", "comma-delimited list of email addresses allowed to run balancing cycles")
	oidcAudience := lflag.String("oidc-audience", "", "audience to validate Google ID tokens against (auth is disabled when empty)")
	rateLimit := lflag.Int("rate-limit", 100, "requests per minute allowed from each client on /api/ (0 disables)")
	historyWindow := grid.DefaultPerformanceWindow
	lflag.JSON(&historyWindow, "history-window", historyWindow, "default number of cycles aggregated by /api/metrics/performance")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.historyWindow = historyWindow
		if *rateLimit > 0 {
			srv.limiter = newRateLimiter(*rateLimit)
		}
		if *adminEmails != "" {
			srv.adminEmails = strings.Split(*adminEmails, ",")
			for i, email := range srv.adminEmails {
				srv.adminEmails[i] = strings.TrimSpace(email)
			}
		}
		if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
				os.Exit(1)
			}
			srv.oidcVerifier = provider.Verifier(&oidc.Config{ClientID: *oidcAudience}).Verify
		} else {
			log.Ctx(context.Background()).Warn("no oidc-audience set, state-changing endpoints are unauthenticated")
			srv.bypassAuth = true
		}
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.Handle("POST /api/balance", s.authMiddleware(http.HandlerFunc(s.handleBalance)))
	apiMux.Handle("POST /api/report", s.authMiddleware(http.HandlerFunc(s.handleReport)))
	apiMux.HandleFunc("GET /api/history/balancing", s.handleHistoryBalancing)
	apiMux.HandleFunc("GET /api/history/weather", s.handleHistoryWeather)
	apiMux.HandleFunc("GET /api/history/demand", s.handleHistoryDemand)
	apiMux.HandleFunc("GET /api/search", s.handleSearch)
	apiMux.HandleFunc("GET /api/search/suggestions", s.handleSearchSuggestions)
	apiMux.HandleFunc("GET /api/metrics/performance", s.handlePerformance)
	apiMux.HandleFunc("GET /api/status", s.handleStatus)
	apiMux.HandleFunc("GET /api/forecast/demand", s.handleDemandForecast)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.requestLogMiddleware(s.rateLimitMiddleware(apiMux)))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}
