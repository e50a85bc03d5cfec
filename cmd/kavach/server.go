package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kavachapp/kavach/internal/config"
	"github.com/kavachapp/kavach/internal/countdown"
	"github.com/kavachapp/kavach/internal/health"
	"github.com/kavachapp/kavach/internal/journal"
	"github.com/kavachapp/kavach/internal/keyword"
	"github.com/kavachapp/kavach/internal/monitor"
	"github.com/kavachapp/kavach/internal/observe"
	"github.com/kavachapp/kavach/pkg/contacts"
)

// app owns the monitor and the HTTP control surface. The monitor is rebuilt
// from the latest configuration whenever a session starts while a reload is
// pending.
type app struct {
	providers *Providers
	metrics   *observe.Metrics
	jnl       journal.Journal

	mu    sync.Mutex
	cfg   *config.Config
	mon   *monitor.Monitor
	stale bool

	srv *http.Server
}

func newApp(cfg *config.Config, ps *Providers, metrics *observe.Metrics, jnl journal.Journal) *app {
	a := &app{
		providers: ps,
		metrics:   metrics,
		jnl:       jnl,
		cfg:       cfg,
	}
	a.mon = buildMonitor(cfg, ps, metrics, jnl)

	var pinger health.Pinger
	if p, ok := jnl.(health.Pinger); ok {
		pinger = p
	}
	checkers := []health.Checker{
		health.Database("journal", pinger),
		health.Monitoring(a.running),
	}
	// Report configured-but-unavailable components; deliberately unconfigured
	// ones stay out of the readiness report.
	if cfg.Providers.ASR.Name != "" {
		checkers = append(checkers, health.Component("recognizer", ps.ASR != nil))
	}
	if cfg.Providers.Classifier.Name != "" {
		checkers = append(checkers, health.Component("classifier", ps.Classifier != nil))
	}
	if cfg.Providers.Telephony.Name != "" {
		checkers = append(checkers, health.Component("telephony", ps.Dialer != nil))
	}
	checks := health.New(checkers...)

	mux := http.NewServeMux()
	checks.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/monitor/start", a.handleStart)
	mux.HandleFunc("POST /v1/monitor/stop", a.handleStop)
	mux.HandleFunc("POST /v1/monitor/cancel", a.handleCancel)
	mux.HandleFunc("GET /v1/monitor/status", a.handleStatus)

	a.srv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a
}

// serve starts the HTTP listener in the background. Listener errors other
// than [http.ErrServerClosed] are logged; they do not abort the process
// because monitoring can continue without the control surface.
func (a *app) serve(ctx context.Context) error {
	tls := a.cfg.Server.TLS
	go func() {
		var err error
		if tls != nil {
			err = a.srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "err", err)
		}
	}()
	slog.Info("http server listening", "addr", a.srv.Addr, "tls", tls != nil)
	return nil
}

// shutdown stops the active session, if any, and closes the HTTP server.
func (a *app) shutdown(ctx context.Context) error {
	var errs []error

	a.mu.Lock()
	mon := a.mon
	a.mu.Unlock()
	if mon.Running() {
		if err := mon.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop session: %w", err))
		}
	}

	if err := a.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	return errors.Join(errs...)
}

// updateConfig records a hot-reloaded configuration. An idle monitor is
// rebuilt immediately; an active session keeps its settings until it stops.
func (a *app) updateConfig(cfg *config.Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	if a.mon.Running() {
		a.stale = true
		slog.Info("session active, new settings apply at next session start")
		return
	}
	a.mon = buildMonitor(cfg, a.providers, a.metrics, a.jnl)
	a.stale = false
}

// monitor returns the current monitor, rebuilding it first when a config
// reload arrived while a session was active and that session has since
// stopped.
func (a *app) monitor() *monitor.Monitor {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stale && !a.mon.Running() {
		a.mon = buildMonitor(a.cfg, a.providers, a.metrics, a.jnl)
		a.stale = false
	}
	return a.mon
}

func (a *app) running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mon.Running()
}

// ── HTTP handlers ─────────────────────────────────────────────────────────────

func (a *app) handleStart(w http.ResponseWriter, r *http.Request) {
	mon := a.monitor()
	if err := mon.Start(r.Context()); err != nil {
		if mon.Running() {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, mon.Status())
}

func (a *app) handleStop(w http.ResponseWriter, r *http.Request) {
	mon := a.monitor()
	if err := mon.Stop(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, mon.Status())
}

func (a *app) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	mon := a.monitor()
	switch err := mon.Cancel(r.Context(), req.Secret); {
	case errors.Is(err, countdown.ErrNotCounting):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, countdown.ErrWrongSecret):
		writeError(w, http.StatusForbidden, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, mon.Status())
	}
}

func (a *app) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.monitor().Status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// ── Config-derived components ─────────────────────────────────────────────────

// buildSpotter maps the keyword configuration onto spotter options. Empty
// lists keep the built-in bilingual tiers.
func buildSpotter(cfg *config.Config) *keyword.Spotter {
	var opts []keyword.Option
	if len(cfg.Keywords.Critical) > 0 {
		opts = append(opts, keyword.WithCritical(cfg.Keywords.Critical))
	}
	if len(cfg.Keywords.Alert) > 0 {
		opts = append(opts, keyword.WithAlert(cfg.Keywords.Alert))
	}
	if cfg.Keywords.Fuzzy {
		opts = append(opts, keyword.WithFuzzy(cfg.Keywords.FuzzyThreshold))
	}
	return keyword.New(opts...)
}

func contactsStore(cfg *config.Config) contacts.Store {
	return contacts.NewStatic(cfg.Contacts.Primary, cfg.Contacts.Secondary)
}
