// Package tester serves the test runner over HTTP.
package tester

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phobologic/sdguide/internal/testrunner"
)

// BasePath prefixes every tester route.
const BasePath = "/tester/v1"

// MaxConfigSize limits the body of a run request.
const MaxConfigSize = 10 << 20

type enabledResponse struct {
	Enabled bool `json:"enabled"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type logRecord struct {
	ID      int64  `json:"id"`
	At      int64  `json:"at"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type logResponse struct {
	LogRecords []logRecord `json:"logRecords"`
}

// Handler routes tester requests to a runner.
type Handler struct {
	runner testrunner.TestRunner
	logger *slog.Logger
	router *mux.Router
}

// NewHandler builds the router. When gatherer is non-nil, /metrics serves it.
func NewHandler(runner testrunner.TestRunner, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{runner: runner, logger: logger, router: mux.NewRouter()}

	api := h.router.PathPrefix(BasePath).Subrouter()
	api.HandleFunc("/", h.handleEnabled).Methods(http.MethodGet)
	api.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/log", h.handleLog).Methods(http.MethodGet)
	api.HandleFunc("/report", h.handleReport).Methods(http.MethodGet)
	api.HandleFunc("/run/{suite}", h.handleRun).Methods(http.MethodPost)

	if gatherer != nil {
		h.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) handleEnabled(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, enabledResponse{Enabled: testrunner.IsSupported(h.runner)})
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, h.runner.Status().String()); err != nil {
		h.logger.Error("Failed to write status", "error", err)
	}
}

func (h *Handler) handleLog(w http.ResponseWriter, r *http.Request) {
	after := int64(-1)
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, messageResponse{Message: fmt.Sprintf("invalid 'after' value %q", v)})
			return
		}
		after = n
	}

	records := h.runner.Log(after)
	resp := logResponse{LogRecords: make([]logRecord, 0, len(records))}
	for _, rec := range records {
		resp.LogRecords = append(resp.LogRecords, logRecord{
			ID:      rec.ID,
			At:      rec.At.UnixMilli(),
			Type:    levelType(rec.Level),
			Message: rec.Message,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReport(w http.ResponseWriter, _ *http.Request) {
	report := testrunner.ReportOf(h.runner)
	if report == nil {
		h.writeJSON(w, http.StatusNotFound, messageResponse{Message: "no test report available"})
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	suite, err := testrunner.ParseSuite(mux.Vars(r)["suite"])
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
		return
	}

	config, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxConfigSize))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, messageResponse{Message: fmt.Sprintf("reading test config: %s", err)})
		return
	}

	if err := h.runner.Test(r.Context(), suite, config); err != nil {
		status := http.StatusConflict
		if errors.Is(err, testrunner.ErrUnknownSuite) {
			status = http.StatusBadRequest
		}
		h.logger.Warn("Rejected test run", "suite", suite, "error", err)
		h.writeJSON(w, status, messageResponse{Message: err.Error()})
		return
	}

	h.logger.Info("Started test run", "suite", suite)
	h.writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("successfully started %s", suite)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to marshal response", "error", err)
		status = http.StatusInternalServerError
		b = []byte(`{"message":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		h.logger.Error("Failed to write response", "error", err)
	}
}

// levelType maps a log level to the record type reported to clients.
func levelType(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warning"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// Serve runs h on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Tester listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serving tester: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down tester: %w", err)
	}
	return nil
}
