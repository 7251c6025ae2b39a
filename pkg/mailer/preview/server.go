package preview

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"

	"github.com/dmitrymomot/missive/pkg/logger"
	"github.com/dmitrymomot/missive/pkg/mailer"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxBodySize           = 10 << 20
	backendParam          = "_backend"
)

// Composer builds messages without delivering them. *mailer.Mailer satisfies it.
type Composer interface {
	Compose(ctx context.Context, p mailer.Params) (*mailer.Message, error)
}

// Server holds the preview routes.
type Server struct {
	composer Composer
	logger   *slog.Logger
	metrics  http.Handler
	checks   Checks
	policy   *bluemonday.Policy
	readFile mailer.FileReader
	timeout  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCheck adds a named readiness check.
func WithCheck(name string, fn CheckFunc) Option {
	return func(s *Server) {
		if fn != nil {
			s.checks[name] = fn
		}
	}
}

// WithHTMLPolicy replaces the policy applied to HTML served by /html.
// Default: bluemonday UGC plus inline styles used by email layouts.
func WithHTMLPolicy(p *bluemonday.Policy) Option {
	return func(s *Server) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithAttachmentFS lets templates attach files from fsys. Attachment paths
// rendered from request data cannot leave fsys. Without it, template
// attachments fail with fs.ErrPermission.
func WithAttachmentFS(fsys fs.FS) Option {
	return func(s *Server) {
		if fsys != nil {
			s.readFile = mailer.FSFileReader(fsys)
		}
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithRequestTimeout bounds every request. Default: 30s.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a preview server.
func New(c Composer, opts ...Option) *Server {
	s := &Server{
		composer: c,
		logger:   logger.NewNope(),
		checks:   make(Checks),
		policy:   defaultPolicy(),
		readFile: denyFiles,
		timeout:  defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowStyling()
	p.AllowStyles(
		"color", "background-color", "font-size", "font-weight", "font-family",
		"text-align", "text-decoration", "line-height", "padding", "margin",
		"border", "border-radius", "display", "width", "max-width",
	).Globally()
	return p
}

func denyFiles(name string) ([]byte, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
}

// Handler returns the chi router serving the preview routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/healthz", livenessHandler)
	r.Get("/readyz", readinessHandler(s.checks, s.logger))
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Post("/compose/*", s.handleCompose)
	r.Get("/html/*", s.handleHTML)
	r.Get("/text/*", s.handleText)

	return r
}

// RequestIDExtractor adds the chi request ID to log records.
func RequestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if id := middleware.GetReqID(ctx); id != "" {
		return slog.String("request_id", id), true
	}
	return slog.Attr{}, false
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.InfoContext(r.Context(), "preview request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
