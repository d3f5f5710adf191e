// Package http serves the fintrack dashboard: a server rendered page whose
// partials are refreshed with htmx after each change to the ledger.
package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	appweb "fintrack/web"
)

const (
	statsCacheSize     = 128
	statsCacheTTL      = 10 * time.Minute
	cacheCleanupPeriod = 5 * time.Minute
	readyTimeout       = 5 * time.Second
)

// Ledger is what the handlers need from the service layer.
type Ledger interface {
	AddEntry(ctx context.Context, in core.EntryInput) (core.Entry, error)
	UpdateEntry(ctx context.Context, id string, in core.EntryInput) (core.Entry, error)
	DeleteEntry(ctx context.Context, id string) (core.Entry, error)
	AddCategory(ctx context.Context, name string, kind core.Kind) (core.Category, error)
	DeleteCategory(ctx context.Context, name string) (core.Category, error)

	Entries(f core.Filter) []core.Entry
	Entry(id string) (core.Entry, error)
	Categories(kind core.Kind) []core.Category
	CategoryUsage() map[string]int
	Revision() uint64
	Ready(ctx context.Context) error
}

// Options configures NewServer.
type Options struct {
	Addr               string
	Ledger             Ledger
	Logger             *log.Logger
	CurrencySymbol     string
	RateLimitPerMinute int
	Now                func() time.Time
}

type Server struct {
	http.Server

	ledger    Ledger
	templates *template.Template
	logger    *log.Logger
	money     moneyFormatter
	now       func() time.Time
	started   time.Time

	statsCache *cache.TTLCache[statsView]
	caches     *cache.Manager
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
}

// NewServer configures routes and templates, returning a ready-to-run server.
// A template parse failure is logged and reported by /readyz.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentHTTP)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	symbol := opts.CurrencySymbol
	if symbol == "" {
		symbol = "₱"
	}

	s := &Server{
		ledger:     opts.Ledger,
		logger:     logger.WithComponent(log.ComponentHTTP),
		money:      newMoneyFormatter(symbol),
		now:        now,
		started:    now(),
		caches:     cache.NewManager(logger),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:   security.NewDetector(logger),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)
	if sc, err := cache.New[statsView](statsCacheSize, statsCacheTTL); err != nil {
		s.logger.Warn("Stats cache disabled", log.FieldError, err.Error())
	} else {
		s.statsCache = sc
		s.caches.Register(sc)
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeConfiguration)
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.tracer.Handler,
		middleware.Recoverer,
		security.Headers(security.DefaultHeadersConfig()),
		s.detector.Middleware,
		s.limiter.Middleware(s.detector.ClientIP, s.onRateLimited),
	)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.With(security.StaticAssetMiddleware(3600)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/ui", func(r chi.Router) {
		r.Get("/entries", s.handleEntriesPartial)
		r.Get("/entries/{id}/edit", s.handleEntryEditForm)
		r.Get("/stats", s.handleStatsPartial)
		r.Get("/categories", s.handleCategoriesPartial)
	})

	r.Route("/entries", func(r chi.Router) {
		r.Post("/", s.handleCreateEntry)
		r.Post("/{id}", s.handleUpdateEntry)
		r.Delete("/{id}", s.handleDeleteEntry)
		r.Post("/{id}/delete", s.handleDeleteEntry)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Post("/", s.handleCreateCategory)
		r.Delete("/{name}", s.handleDeleteCategory)
		r.Post("/{name}/delete", s.handleDeleteCategory)
	})

	return r
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many changes, please wait a minute").Write(w)
}

// RunMaintenance sweeps expired cache items until ctx is done, then releases
// the stats cache.
func (s *Server) RunMaintenance(ctx context.Context) {
	s.caches.Run(ctx, cacheCleanupPeriod)
	s.statsCache.Close()
}

// render executes a named template into a buffer so a failure can still
// answer 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		InternalServerError("Templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err.Error())
		InternalServerError("Could not render page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
