// Package httpapi is the HTTP surface of the extractor.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"comment-extractor/internal/application/port/input"
	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/infrastructure/document/htmldoc"
	"comment-extractor/internal/usecase/orchestrator"
	"comment-extractor/internal/usecase/runstate"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
)

const (
	maxBodyBytes   = 8 << 20
	serviceName    = "comment-extractor"
	requestTimeout = 10 * time.Minute
)

// Extractor is the orchestrator as seen by the API.
type Extractor interface {
	input.Extractor
	Cancel() bool
	Active() bool
}

type Deps struct {
	Extractor Extractor
	// Documents opens URLs for requests without inline HTML. Nil means
	// inline HTML is required.
	Documents output.DocumentSource
	Store     output.SettingsStore
	Logger    output.LoggerPort
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// AccessLog enables httplog request logging.
	AccessLog bool
}

type Server struct {
	deps Deps
	// busy serializes document opening with the run itself so a shared
	// browser page is never navigated under an active run.
	busy sync.Mutex
}

func New(deps Deps) *Server {
	return &Server{deps: deps}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.deps.AccessLog {
		r.Use(httplog.RequestLogger(httplog.NewLogger(serviceName, httplog.Options{JSON: true, Concise: true})))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", s.extract)
		r.Post("/cancel", s.cancel)
		r.Get("/status", s.status)
		r.Get("/configs", s.listConfigs)
		r.Get("/configs/{domain}", s.getConfig)
		r.Put("/configs/{domain}", s.putConfig)
	})
	return r
}

type extractBody struct {
	URL         string              `json:"url"`
	HTML        string              `json:"html,omitempty"`
	Domain      string              `json:"domain,omitempty"`
	MaxComments int                 `json:"maxComments,omitempty"`
	Strategy    entity.StrategyKind `json:"strategy,omitempty"`
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	var body extractBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	if !s.busy.TryLock() {
		writeError(w, http.StatusConflict, runstate.ErrBusy)
		return
	}
	defer s.busy.Unlock()

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	doc, release, err := s.open(ctx, body)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	defer release()

	res, err := s.deps.Extractor.Execute(ctx, doc, input.ExtractRequest{
		URL:         body.URL,
		Domain:      body.Domain,
		MaxComments: body.MaxComments,
		Strategy:    body.Strategy,
	})
	if err != nil {
		s.extractFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) open(ctx context.Context, body extractBody) (output.DocumentPort, func(), error) {
	if body.HTML != "" {
		doc, err := htmldoc.New(body.HTML)
		if err != nil {
			return nil, nil, err
		}
		return doc, func() {}, nil
	}
	if s.deps.Documents == nil {
		return nil, nil, errors.New("no document source configured; send inline html")
	}
	return s.deps.Documents.Open(ctx, body.URL)
}

func (s *Server) extractFailed(w http.ResponseWriter, err error) {
	var exErr *entity.ExtractionError
	switch {
	case errors.As(err, &exErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    err.Error(),
			"attempts": exErr.Attempts,
		})
	case errors.Is(err, runstate.ErrBusy):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, orchestrator.ErrUnknownStrategy), errors.Is(err, orchestrator.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.deps.Logger.Error("extraction failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": s.deps.Extractor.Cancel()})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"active": s.deps.Extractor.Active()})
}

func (s *Server) listConfigs(w http.ResponseWriter, r *http.Request) {
	cfgs, err := s.deps.Store.ListConfigs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": cfgs})
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	domain := orchestrator.NormalizeDomain(chi.URLParam(r, "domain"))
	cfg, err := s.deps.Store.GetConfig(r.Context(), domain)
	if errors.Is(err, entity.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	var cfg entity.ExtractionConfig
	if err := decode(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg.Domain = orchestrator.NormalizeDomain(chi.URLParam(r, "domain"))
	cfg.UpdatedAt = time.Now().UTC()

	if err := s.deps.Store.SaveConfig(r.Context(), &cfg); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, entity.ErrInvalidConfig) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	s.deps.Logger.Info("config saved", "domain", cfg.Domain)
	writeJSON(w, http.StatusOK, &cfg)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": strings.TrimSpace(err.Error())})
}
