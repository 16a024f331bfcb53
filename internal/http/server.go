// Package http serves the bill tracker's server-rendered pages.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"budget/internal/cache"
	applog "budget/internal/log"
	"budget/internal/metrics"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
	appweb "budget/web"
)

// Options configures NewServer. Zero values fall back to defaults.
type Options struct {
	Addr   string
	Logger *applog.Logger
	// Metrics may be nil, which disables /metrics.
	Metrics *metrics.Metrics
	// RateLimitPerMinute bounds POSTs per client (default: 60).
	RateLimitPerMinute int
	// CleanupInterval is how often expired cache entries and idle rate-limit
	// clients are swept (default: 5m).
	CleanupInterval time.Duration
}

type Server struct {
	http.Server
	bills     *services.BillService
	templates *template.Template
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	caches    *cache.Manager
	logger    *applog.Logger
	started   time.Time

	stopCleanup  context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(bills *services.BillService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 5 * time.Minute
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		bills:   bills,
		metrics: opts.Metrics,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Metrics:           opts.Metrics,
		}),
		detector: security.NewDetector(opts.Metrics),
		caches:   cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger),
		logger:   logger,
		started:  time.Now(),
	}

	t, err := parseTemplates()
	if err != nil {
		logger.Error("Failed parsing templates",
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ClientIP)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = trace.NewMiddleware(opts.Logger, s.detector.ClientIP, opts.Metrics).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.caches.Register(bills.ViewCache())
	s.caches.Register(s.limiter)
	ctx, cancel := context.WithCancel(context.Background())
	s.stopCleanup = cancel
	s.caches.StartCleanup(ctx, opts.CleanupInterval)

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /{year}/{month}/{$}", s.handleMonth)
	mux.HandleFunc("POST /{year}/{month}/{$}", s.handleCreateBill)
	mux.HandleFunc("GET /edit/{id}", s.handleEditForm)
	mux.HandleFunc("POST /edit/{id}", s.handleEditBill)
	mux.HandleFunc("POST /confirm_edit/{id}", s.handleConfirmEdit)
	mux.HandleFunc("GET /delete/{id}", s.handleDeleteForm)
	mux.HandleFunc("POST /delete/{id}", s.handleDeleteBill)
	mux.HandleFunc("GET /pay_period/{$}", s.handlePayPeriod)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/{file}", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// Shutdown stops the cache sweeper and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopCleanup()
		s.caches.Wait()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
