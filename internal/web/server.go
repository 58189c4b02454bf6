package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/noahxzhu/widget-dashboard/internal/countdown"
	"github.com/noahxzhu/widget-dashboard/internal/credentials"
	"github.com/noahxzhu/widget-dashboard/internal/dashboard"
	"github.com/noahxzhu/widget-dashboard/internal/model"
	"github.com/noahxzhu/widget-dashboard/internal/notify"
	"github.com/noahxzhu/widget-dashboard/internal/storage"
)

const maskedSecret = "********"

type Server struct {
	store    *storage.Store
	registry *credentials.Registry
	engine   *notify.Engine
	host     *dashboard.Host
	router   *http.ServeMux
	logger   *slog.Logger
}

func NewServer(store *storage.Store, registry *credentials.Registry, engine *notify.Engine, host *dashboard.Host, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    store,
		registry: registry,
		engine:   engine,
		host:     host,
		router:   http.NewServeMux(),
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /api/settings", s.handleSettings)
	s.router.HandleFunc("PATCH /api/settings/{section}", s.handleUpdateSettings)

	s.router.HandleFunc("GET /api/credentials", s.handleListCredentials)
	s.router.HandleFunc("POST /api/credentials", s.handleAddCredential)
	s.router.HandleFunc("PATCH /api/credentials/{id}", s.handleUpdateCredential)
	s.router.HandleFunc("DELETE /api/credentials/{id}", s.handleRemoveCredential)

	s.router.HandleFunc("GET /api/notifications", s.handleListNotifications)
	s.router.HandleFunc("POST /api/notifications", s.handleNotify)
	s.router.HandleFunc("DELETE /api/notifications/{id}", s.handleDismiss)

	s.router.HandleFunc("GET /api/widgets", s.handleListWidgets)
	s.router.HandleFunc("POST /api/widgets", s.handleAddWidget)
	s.router.HandleFunc("DELETE /api/widgets/{id}", s.handleRemoveWidget)
	s.router.HandleFunc("POST /api/widgets/{id}/countdown/{action}", s.handleCountdownAction)
	s.router.HandleFunc("PATCH /api/widgets/{id}/countdown", s.handleCountdownFields)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Settings

type settingsView struct {
	General     model.General     `json:"general"`
	Appearance  model.Appearance  `json:"appearance"`
	Performance model.Performance `json:"performance"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	cfg := s.store.Read()
	s.renderJSON(w, http.StatusOK, settingsView{
		General:     cfg.General,
		Appearance:  cfg.Appearance,
		Performance: cfg.Performance,
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !s.decode(w, r, &fields) {
		return
	}
	if err := s.store.Update(storage.Section(r.PathValue("section")), fields); err != nil {
		s.renderError(w, err)
		return
	}
	s.handleSettings(w, r)
}

// Credentials

func masked(c model.Credential) model.Credential {
	if c.Secret != "" {
		c.Secret = maskedSecret
	}
	return c
}

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	var creds []model.Credential
	if service := r.URL.Query().Get("service"); service != "" {
		creds = s.registry.ByService(service)
	} else {
		creds = s.store.Read().Credentials
	}

	out := make([]model.Credential, 0, len(creds))
	for _, c := range creds {
		out = append(out, masked(c))
	}
	s.renderJSON(w, http.StatusOK, out)
}

type credentialRequest struct {
	Name    string `json:"name"`
	Service string `json:"service"`
	Secret  string `json:"secret"`
}

func (s *Server) handleAddCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if !s.decode(w, r, &req) {
		return
	}
	c, err := s.store.AddCredential(req.Name, req.Service, req.Secret)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.renderJSON(w, http.StatusCreated, masked(c))
}

func (s *Server) handleUpdateCredential(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if !s.decode(w, r, &fields) {
		return
	}
	if err := s.store.UpdateCredential(r.PathValue("id"), fields); err != nil {
		s.renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveCredential(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveCredential(r.PathValue("id")); err != nil {
		s.renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Notifications

type notifyRequest struct {
	Message    string         `json:"message"`
	Severity   model.Severity `json:"severity"`
	LifetimeMs int64          `json:"lifetimeMs"`
	Sound      *notify.Sound  `json:"sound"`
	Desktop    bool           `json:"desktop"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	s.renderJSON(w, http.StatusOK, s.engine.List())
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	id := s.engine.Notify(req.Message, notify.Options{
		Severity: req.Severity,
		Lifetime: time.Duration(req.LifetimeMs) * time.Millisecond,
		Sound:    req.Sound,
		Desktop:  req.Desktop,
	})
	s.renderJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.engine.Remove(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// Widgets

type widgetRequest struct {
	Kind   model.WidgetKind `json:"kind"`
	Config map[string]any   `json:"config"`
}

func (s *Server) handleListWidgets(w http.ResponseWriter, r *http.Request) {
	s.renderJSON(w, http.StatusOK, s.host.List())
}

func (s *Server) handleAddWidget(w http.ResponseWriter, r *http.Request) {
	var req widgetRequest
	if !s.decode(w, r, &req) {
		return
	}
	widget, err := s.host.Add(req.Kind, req.Config)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.renderJSON(w, http.StatusCreated, widget)
}

func (s *Server) handleRemoveWidget(w http.ResponseWriter, r *http.Request) {
	if err := s.host.Remove(r.PathValue("id")); err != nil {
		s.renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type countdownView struct {
	model.CountdownState
	Phase     countdown.Phase `json:"phase"`
	Remaining int             `json:"remaining"`
}

func (s *Server) renderCountdown(w http.ResponseWriter, t *countdown.Timer) {
	s.renderJSON(w, http.StatusOK, countdownView{
		CountdownState: t.State(),
		Phase:          t.Phase(),
		Remaining:      t.Remaining(),
	})
}

func (s *Server) handleCountdownAction(w http.ResponseWriter, r *http.Request) {
	t, err := s.host.Countdown(r.PathValue("id"))
	if err != nil {
		s.renderError(w, err)
		return
	}

	switch r.PathValue("action") {
	case "start":
		err = t.Start()
	case "pause":
		err = t.Pause()
	case "reset":
		err = t.Reset()
	default:
		http.Error(w, "unknown countdown action", http.StatusNotFound)
		return
	}
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.renderCountdown(w, t)
}

func (s *Server) handleCountdownFields(w http.ResponseWriter, r *http.Request) {
	t, err := s.host.Countdown(r.PathValue("id"))
	if err != nil {
		s.renderError(w, err)
		return
	}

	var fields map[string]string
	if !s.decode(w, r, &fields) {
		return
	}
	for name := range fields {
		if name != "hours" && name != "minutes" && name != "seconds" {
			s.renderError(w, fmt.Errorf("%w: %q", countdown.ErrUnknownField, name))
			return
		}
	}
	for _, name := range []string{"hours", "minutes", "seconds"} {
		input, ok := fields[name]
		if !ok {
			continue
		}
		if err := t.SetField(name, input); err != nil {
			s.renderError(w, err)
			return
		}
	}
	s.renderCountdown(w, t)
}

// Helpers

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrPersist):
		return http.StatusInternalServerError
	case errors.Is(err, storage.ErrWidgetNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrNotCountdown),
		errors.Is(err, countdown.ErrRunning),
		errors.Is(err, countdown.ErrZeroDuration),
		errors.Is(err, countdown.ErrClosed):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.renderJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) renderJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
