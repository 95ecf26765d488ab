package httpapi

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/core/ports"
	"EventRelay/internal/shared/mpsc"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// publishRequest is the body of POST /events. ID and time are assigned here.
type publishRequest struct {
	Kind    domain.Kind `json:"kind"`
	Subject string      `json:"subject"`
	Payload string      `json:"payload"`
}

type publishResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server turns HTTP requests into bus events.
type Server struct {
	sink     *mpsc.Sender[domain.Event]
	gatherer prometheus.Gatherer
	journal  ports.EventJournal
	log      zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithJournal enables GET /subjects/{subject}/events.
func WithJournal(j ports.EventJournal) Option {
	return func(s *Server) { s.journal = j }
}

// WithGatherer exposes g on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewServer creates a server publishing through sink. The server owns sink.
func NewServer(sink *mpsc.Sender[domain.Event], baseLogger *zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		sink: sink,
		log:  baseLogger.With().Str("component", "http_api").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the event sink.
func (s *Server) Close() {
	s.sink.Close()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Post("/events", s.handlePublish)
	if s.journal != nil {
		r.Get("/subjects/{subject}/events", s.handleListBySubject)
	}
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// The sentinel is reserved for the process itself.
	if req.Kind == domain.KindShutdown {
		writeError(w, http.StatusForbidden, "kind is reserved")
		return
	}

	evt := domain.NewEvent(req.Kind, req.Subject, req.Payload)
	if err := evt.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.sink.Send(evt); err != nil {
		if errors.Is(err, mpsc.ErrClosed) {
			writeError(w, http.StatusServiceUnavailable, "event bus is closed")
			return
		}
		s.log.Error().Err(err).Msg("Failed to publish event")
		writeError(w, http.StatusInternalServerError, "could not publish event")
		return
	}

	s.log.Debug().
		Str("event_id", evt.ID.String()).
		Str("kind", evt.Kind.String()).
		Msg("Event published")
	writeJSON(w, http.StatusAccepted, publishResponse{ID: evt.ID.String()})
}

func (s *Server) handleListBySubject(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	events, err := s.journal.ListBySubject(r.Context(), subject)
	if err != nil {
		s.log.Error().Err(err).Str("subject", subject).Msg("Failed to list events")
		writeError(w, http.StatusInternalServerError, "could not list events")
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
