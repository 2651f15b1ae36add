// Package api exposes the review queue over HTTP. Clients poll the same
// review endpoint until the report is ready; the session, organization, and
// coverage level ride on headers supplied by the identity layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/localeforge/vetqueue/internal/app/review"
	"github.com/localeforge/vetqueue/internal/config"
	"github.com/localeforge/vetqueue/internal/domain/vetting"
	"github.com/localeforge/vetqueue/pkg/common/logger"
	"github.com/localeforge/vetqueue/pkg/common/otel"
)

const (
	headerSession      = "X-Session-ID"
	headerOrganization = "X-Organization"
	headerLevel        = "X-Coverage-Level"
)

type Server struct {
	cfg    *config.Config
	logger *logger.Logger
	router *chi.Mux
	queue  *review.Queue
	tracer trace.Tracer
}

func NewServer(cfg *config.Config, log *logger.Logger, tracer trace.Tracer, queue *review.Queue) (*Server, error) {
	if queue == nil {
		return nil, errors.New("review queue is required")
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(otel.Middleware(tracer))
	r.Use(loggerMiddleware(log))
	r.Use(middleware.Recoverer)

	s := &Server{
		cfg:    cfg,
		logger: log,
		router: r,
		queue:  queue,
		tracer: tracer,
	}

	s.routes()
	return s, nil
}

func loggerMiddleware(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				ctx := r.Context()
				log.Info(ctx, "Request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration", time.Since(start),
					"trace_id", otel.GetTraceID(ctx),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func (s *Server) routes() {
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/readiness", s.handleReadiness)

		r.Get("/review/{locale}", s.handleReview)
		r.Get("/review/{locale}/path", s.handlePathReview)
		r.Delete("/review/session", s.handleEndSession)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// reviewResponse is the poll reply. Output and notifications are only set
// when status is READY.
type reviewResponse struct {
	Status        vetting.Status         `json:"status"`
	Message       string                 `json:"message"`
	Output        string                 `json:"output,omitempty"`
	Notifications []vetting.Notification `json:"notifications,omitempty"`
	Fields        review.StatusFields    `json:"fields"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	req, ok := s.reviewRequest(w, r)
	if !ok {
		return
	}

	policy, err := vetting.ParseLoadingPolicy(r.URL.Query().Get("policy"))
	if err != nil {
		http.Error(w, "unknown loading policy", http.StatusBadRequest)
		return
	}
	req.Policy = policy

	res, err := s.queue.RequestOrPoll(r.Context(), req)
	if err != nil {
		s.logger.Error(r.Context(), "review request failed",
			"locale", req.Locale, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.respond(w, r, http.StatusOK, reviewResponse{
		Status:        res.Status,
		Message:       res.Message,
		Output:        res.Output,
		Notifications: res.Notifications,
		Fields:        res.Fields,
	})
}

func (s *Server) handlePathReview(w http.ResponseWriter, r *http.Request) {
	req, ok := s.reviewRequest(w, r)
	if !ok {
		return
	}

	path := r.URL.Query().Get("path")
	problems, err := s.queue.PathReport(r.Context(), req.Locale, req.Organization, req.Level, path)
	if err != nil {
		if errors.Is(err, review.ErrSummaryNotSupported) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error(r.Context(), "path review failed",
			"locale", req.Locale, "path", path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.respond(w, r, http.StatusOK, struct {
		Locale   string            `json:"locale"`
		Path     string            `json:"path"`
		Problems []vetting.Problem `json:"problems"`
	}{string(req.Locale), path, problems})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	session := review.SessionID(r.Header.Get(headerSession))
	if session == "" {
		http.Error(w, "missing "+headerSession, http.StatusBadRequest)
		return
	}
	s.queue.EndSession(session)
	w.WriteHeader(http.StatusNoContent)
}

// reviewRequest assembles the queue request from path and headers, writing
// the error reply itself when the request is malformed.
func (s *Server) reviewRequest(w http.ResponseWriter, r *http.Request) (review.Request, bool) {
	session := review.SessionID(r.Header.Get(headerSession))
	if session == "" {
		http.Error(w, "missing "+headerSession, http.StatusBadRequest)
		return review.Request{}, false
	}

	locale, err := vetting.ParseLocale(chi.URLParam(r, "locale"))
	if err != nil {
		http.Error(w, "invalid locale", http.StatusBadRequest)
		return review.Request{}, false
	}

	level := vetting.LevelModern
	if raw := r.Header.Get(headerLevel); raw != "" {
		if level, err = vetting.ParseLevel(raw); err != nil {
			http.Error(w, "unknown coverage level", http.StatusBadRequest)
			return review.Request{}, false
		}
	}

	return review.Request{
		Session:      session,
		Locale:       locale,
		Organization: vetting.Organization(r.Header.Get(headerOrganization)),
		Level:        level,
	}, true
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error(r.Context(), "failed to encode response", "error", err)
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "failed to shutdown server", "error", err)
		}
	}()

	s.logger.Info(ctx, "starting server",
		"addr", server.Addr,
		"service", "reviewd",
	)

	return server.ListenAndServe()
}
