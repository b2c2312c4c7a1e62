// Package server provides the HTTP REST API for the script generator.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonathan/script-generator/internal/analysis"
	"github.com/jonathan/script-generator/internal/config"
	"github.com/jonathan/script-generator/internal/db"
	"github.com/jonathan/script-generator/internal/generation"
	"github.com/jonathan/script-generator/internal/jobs"
	"github.com/jonathan/script-generator/internal/llm"
	"github.com/jonathan/script-generator/internal/rendering"
	"github.com/jonathan/script-generator/internal/server/middleware"
	"github.com/jonathan/script-generator/internal/server/ratelimit"
	"github.com/jonathan/script-generator/internal/templates"
)

// Deps are the collaborators behind the HTTP handlers.
type Deps struct {
	Templates      *templates.Store
	Analyzer       *analysis.Analyzer
	Runner         *jobs.Runner
	Renderer       *rendering.Renderer
	RateLimiter    *ratelimit.Limiter // nil disables rate limiting
	JWT            *JWTService        // nil leaves /api/ open
	MaxUploadBytes int64
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	deps       Deps
	handler    http.Handler

	// closers run after the HTTP server stops, in order.
	closers []func()
}

// New wires the production dependencies from cfg: templates, quality
// thresholds, the Gemini client, the task store and runner, export rendering,
// optional JWT auth and rate limiting.
func New(ctx context.Context, cfg *config.ServerConfig) (*Server, error) {
	tmpls, err := templates.Load(cfg.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	thresholds, err := config.LoadQuality(cfg.QualityConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load quality thresholds: %w", err)
	}
	analyzer := analysis.New(thresholds)

	jwtConfig, err := config.OptionalJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	llmConfig := llm.DefaultConfig().WithOverrides(cfg.Model, cfg.FallbackModel)
	if llmConfig.HasFallback() {
		log.Printf("[server] script model %s, fallback %s", llmConfig.GetModel(llm.TierAdvanced), llmConfig.GetModel(llm.TierFallback))
	} else {
		log.Printf("[server] script model %s, no fallback", llmConfig.GetModel(llm.TierAdvanced))
	}
	client, err := llm.NewClient(ctx, llmConfig, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	var store jobs.Store
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			client.Close() //nolint:errcheck
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		taskStore := db.NewTaskStore(database)
		recovered, err := taskStore.FailPending(ctx)
		if err != nil {
			taskStore.Close() //nolint:errcheck
			client.Close()    //nolint:errcheck
			return nil, err
		}
		if recovered > 0 {
			log.Printf("[server] marked %d interrupted tasks as failed", recovered)
		}
		store = taskStore
		log.Printf("[server] task store: postgres")
	} else {
		store = jobs.NewMemoryStore()
		log.Printf("[server] task store: memory")
	}

	runner := jobs.NewRunner(store, generation.New(client, analyzer, tmpls), jobs.Options{
		MaxConcurrent: cfg.MaxConcurrent,
		TaskTimeout:   cfg.TaskTimeout,
		Retention:     cfg.TaskRetention,
	})

	var printer rendering.PDFPrinter
	if cfg.PDFExport {
		printer = rendering.NewChromePrinter(false)
	}

	deps := Deps{
		Templates:      tmpls,
		Analyzer:       analyzer,
		Runner:         runner,
		Renderer:       rendering.NewRenderer(printer),
		RateLimiter:    ratelimit.NewLimiter(ratelimit.LoadConfig()),
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	if jwtConfig != nil {
		deps.JWT = NewJWTService(jwtConfig)
		log.Printf("[server] bearer auth enabled on /api/")
	}

	s := NewWithDeps(deps)
	s.httpServer.Addr = fmt.Sprintf(":%d", cfg.Port)
	s.closers = []func(){
		runner.Stop,
		deps.RateLimiter.Stop,
		func() {
			if err := store.Close(); err != nil {
				log.Printf("[server] closing task store: %v", err)
			}
		},
		func() { client.Close() }, //nolint:errcheck
	}
	return s, nil
}

// NewWithDeps builds the router and middleware around already constructed dependencies.
func NewWithDeps(deps Deps) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = config.DefaultMaxUploadBytes
	}
	s := &Server{deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("POST /api/upload-file", s.handleUpload)
	mux.HandleFunc("POST /api/generate-script", s.handleGenerate)
	mux.HandleFunc("GET /api/script-status/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/script-status/{id}/stream", s.handleStatusStream)
	mux.HandleFunc("GET /api/script-status/{id}/ws", s.handleStatusWebSocket)
	mux.HandleFunc("POST /api/validate-script", s.handleValidate)
	mux.HandleFunc("POST /api/export-script", s.handleExport)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(s.withAuth(mux))))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.DefaultPort),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // status streams clear their own deadline
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the full middleware chain and router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		s.close()
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("[server] shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.close()
	log.Println("[server] stopped")
	return nil
}

func (s *Server) close() {
	for _, fn := range s.closers {
		fn()
	}
	s.closers = nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withAuth requires a bearer token on /api/ routes when JWT is configured.
func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.deps.JWT == nil {
		return next
	}
	protected := middleware.AuthMiddleware(s.deps.JWT.AsTokenValidator())(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			protected.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.deps.RateLimiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.deps.RateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] error encoding JSON response: %v", err)
	}
}

// errorResponse writes {"status":"error","detail":...}
func (s *Server) errorResponse(w http.ResponseWriter, status int, detail string) {
	s.jsonResponse(w, status, map[string]string{"status": "error", "detail": detail})
}

// extractClientID uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 in the API error shape.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	if info.RetryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(info.RetryAfter.Seconds()))))
	}
	log.Printf("[rate-limit] limit exceeded: limit=%d reset=%s",
		info.Limit, info.ResetTime.Format(time.RFC3339))
	s.errorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}
