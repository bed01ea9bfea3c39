package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vbonduro/feestatement/internal/service"
)

type Options struct {
	// Company is printed at the top of every export.
	Company string
}

type Server struct {
	service  *service.StatementService
	mux      *http.ServeMux
	validate *validator.Validate
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

func NewServer(svc *service.StatementService, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		service:  svc,
		mux:      http.NewServeMux(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	const base = "/projects/{projectId}/statement"

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /catalog/{projectType}", s.handleCatalog)

	s.mux.HandleFunc("GET "+base, s.handleGetStatement)
	s.mux.HandleFunc("DELETE "+base+"/session", s.handleCloseSession)
	s.mux.HandleFunc("POST "+base+"/items", s.handleAddItem)
	s.mux.HandleFunc("PATCH "+base+"/items/{itemId}", s.handleUpdateItem)
	s.mux.HandleFunc("DELETE "+base+"/items/{itemId}", s.handleDeleteItem)
	s.mux.HandleFunc("POST "+base+"/auto-calculate", s.handleAutoCalculate)
	s.mux.HandleFunc("PUT "+base+"/project-type", s.handleChangeProjectType)
	s.mux.HandleFunc("PATCH "+base+"/details", s.handleUpdateDetails)
	s.mux.HandleFunc("PUT "+base+"/margin", s.handleSetMargin)
	s.mux.HandleFunc("PUT "+base+"/lock", s.handleSetLock)
	s.mux.HandleFunc("POST "+base+"/save", s.handleSaveStatement)

	s.mux.HandleFunc("GET "+base+"/versions", s.handleListVersions)
	s.mux.HandleFunc("POST "+base+"/versions", s.handleSaveVersion)
	s.mux.HandleFunc("POST "+base+"/versions/new", s.handleStartNewVersion)
	s.mux.HandleFunc("POST "+base+"/versions/{versionId}/load", s.handleLoadVersion)
	s.mux.HandleFunc("DELETE "+base+"/versions/{versionId}", s.handleDeleteVersion)

	s.mux.HandleFunc("GET "+base+"/customer", s.handleCustomerView)
	s.mux.HandleFunc("GET "+base+"/export.pdf", s.handleExport(formatPDF))
	s.mux.HandleFunc("GET "+base+"/export.xlsx", s.handleExport(formatXLSX))
	s.mux.HandleFunc("GET "+base+"/export.csv", s.handleExport(formatCSV))
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
