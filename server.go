package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"hyperliquid-trader/models"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const version = "0.1.0"

// marketReader is the read-only surface the HTTP API exposes.
type marketReader interface {
	Status(ctx context.Context) (*models.StatusReport, error)
	Balances(ctx context.Context) (*models.BalanceReport, error)
	Spot(ctx context.Context) (*models.SpotReport, error)
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type apiHandler struct {
	svc    marketReader
	logger *zap.Logger
}

func newRouter(svc marketReader, logger *zap.Logger) *mux.Router {
	h := &apiHandler{svc: svc, logger: logger}

	router := mux.NewRouter()
	router.Use(h.recovery)
	router.Use(h.logging)
	router.Use(cors)

	router.HandleFunc("/health", h.health).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/status", h.status).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/balances", h.balances).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/spot", h.spot).Methods(http.MethodGet, http.MethodOptions)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet, http.MethodOptions)
	return router
}

func (h *apiHandler) health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Unix(),
		Version:   version,
	})
}

func (h *apiHandler) status(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Status(r.Context())
	if err != nil {
		h.upstreamError(w, "Failed to get status", err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (h *apiHandler) balances(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Balances(r.Context())
	if err != nil {
		h.upstreamError(w, "Failed to get balances", err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (h *apiHandler) spot(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Spot(r.Context())
	if err != nil {
		h.upstreamError(w, "Failed to get spot markets", err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (h *apiHandler) upstreamError(w http.ResponseWriter, message string, err error) {
	h.logger.Warn(message, zap.Error(err))
	respondWithJSON(w, http.StatusBadGateway, ErrorResponse{Error: fmt.Sprintf("%s: %v", message, err)})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// cors is permissive: the API is read-only.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *apiHandler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func (h *apiHandler) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("Panic in HTTP handler",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path))
				respondWithJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// runServer serves the API until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, port int, svc marketReader, logger *zap.Logger, out io.Writer) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           newRouter(svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	fmt.Fprintf(out, "Hyperliquid Server running on http://localhost:%d\n", port)
	fmt.Fprintln(out, "Available endpoints:")
	fmt.Fprintln(out, "   GET  /health       - Health check")
	fmt.Fprintln(out, "   GET  /status       - Exchange status")
	fmt.Fprintln(out, "   GET  /balances     - Account balances")
	fmt.Fprintln(out, "   GET  /spot         - Spot markets")
	fmt.Fprintln(out, "   GET  /metrics      - Prometheus metrics")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Press Ctrl+C to stop the server")
	logger.Info("HTTP API started", zap.Int("port", port))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
