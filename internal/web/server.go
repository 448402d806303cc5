package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/sloppy/nucleireport/internal/db"
	"github.com/sloppy/nucleireport/internal/logging"
)

// Server wires the viewer handlers and dependencies.
type Server struct {
	DB     *db.DB
	Locale string
	Logger logrus.FieldLogger
	Router chi.Router
}

// NewServer constructs the router and registers routes. A nil logger
// discards request logs.
func NewServer(database *db.DB, locale string, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	server := &Server{DB: database, Locale: locale, Logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(server.logRequests)

	r.Get("/", server.handleRoot)
	r.Get("/runs", server.handleRunsList)
	r.Get("/runs/{id}", server.handleRunDetail)
	r.Get("/runs/{id}/export", server.handleRunExport)
	r.Get("/api/runs", server.handleAPIRuns)
	r.Get("/api/runs/{id}", server.handleAPIRun)

	server.Router = r
	return server
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.Router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}
