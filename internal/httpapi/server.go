package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"gatewayd/internal/auth"
	"gatewayd/internal/gwconfig"
	"gatewayd/internal/manager"
	"gatewayd/pkg/types"
)

// DefaultLogLines is returned by GET /api/logs when n is not given.
const DefaultLogLines = 100

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Status() types.StatusResponse
	Logs(n int) types.LogsResponse
	LogCapacity() int
	Subscribe() (<-chan manager.Event, func())
	Config() types.ConfigResponse
	UpdateConfig(ctx context.Context, doc map[string]any) (types.UpdateConfigResponse, error)
	Start(ctx context.Context) (types.ActionResponse, error)
	Stop(ctx context.Context) (types.ActionResponse, error)
	Restart(ctx context.Context) (types.ActionResponse, error)
	Ready() bool
}

type handlers struct {
	svc Service
}

// NewMux builds the router. Everything under /api requires the admin
// credentials checked by gate and is rate limited per client IP.
func NewMux(svc Service, gate *auth.Gate) http.Handler {
	h := &handlers{svc: svc}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsAllowedOrigins,
			AllowedMethods:   corsAllowedMethods,
			AllowedHeaders:   corsAllowedHeaders,
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", h.readyz)
	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimiter())
		r.Use(gate.Middleware(logger()))
		r.Get("/status", h.status)
		r.Get("/logs", h.logs)
		r.Get("/logs/stream", h.streamLogs)
		r.Get("/config", h.getConfig)
		r.Put("/config", h.putConfig)
		r.Post("/gateway/start", h.action(svc.Start))
		r.Post("/gateway/stop", h.action(svc.Stop))
		r.Post("/gateway/restart", h.action(svc.Restart))
	})
	return r
}

func rateLimiter() func(http.Handler) http.Handler {
	if rateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(rateLimitRequests, rateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			IncrementRateLimited("/api/*")
			writeJSONError(w, http.StatusTooManyRequests, types.CategoryRequest, "rate limit exceeded")
		}),
	)
}

func logger() zerolog.Logger {
	if zlog == nil {
		return zerolog.Nop()
	}
	return *zlog
}

// readyz godoc
// @Summary Readiness probe
// @Description 200 when the gateway is running, 503 with the current state otherwise.
// @Tags health
// @Produce plain
// @Success 200 {string} string "ready"
// @Failure 503 {string} string "gateway state"
// @Router /readyz [get]
func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if h.svc.Ready() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(h.svc.Status().State))
}

// status godoc
// @Summary Gateway status
// @Tags gateway
// @Produce json
// @Security BasicAuth
// @Success 200 {object} types.StatusResponse
// @Failure 401 {object} types.ErrorResponse
// @Router /api/status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// logs godoc
// @Summary Recent gateway output
// @Tags gateway
// @Produce json
// @Security BasicAuth
// @Param n query int false "number of lines (default 100, capped at buffer capacity)"
// @Success 200 {object} types.LogsResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 401 {object} types.ErrorResponse
// @Router /api/logs [get]
func (h *handlers) logs(w http.ResponseWriter, r *http.Request) {
	n, err := parseLineCount(r.URL.Query().Get("n"), DefaultLogLines, h.svc.LogCapacity())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, types.CategoryRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Logs(n))
}

var errBadLineCount = errors.New("n must be a positive integer")

// parseLineCount parses the n query parameter: empty means def, values
// above capacity are clamped.
func parseLineCount(raw string, def, capacity int) (int, error) {
	if raw == "" {
		raw = strconv.Itoa(def)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errBadLineCount
	}
	if capacity > 0 && n > capacity {
		n = capacity
	}
	return n, nil
}

// getConfig godoc
// @Summary Stored gateway config (secrets masked)
// @Tags config
// @Produce json
// @Security BasicAuth
// @Success 200 {object} types.ConfigResponse
// @Failure 401 {object} types.ErrorResponse
// @Router /api/config [get]
func (h *handlers) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Config())
}

// putConfig godoc
// @Summary Replace the gateway config and restart the gateway
// @Description Accepts JSON (default, comments allowed), YAML or TOML. Secrets sent back as the placeholder keep their stored value; an empty string clears them.
// @Tags config
// @Accept json
// @Accept application/yaml
// @Accept application/toml
// @Produce json
// @Security BasicAuth
// @Success 200 {object} types.UpdateConfigResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 401 {object} types.ErrorResponse
// @Failure 413 {object} types.ErrorResponse
// @Failure 415 {object} types.ErrorResponse
// @Router /api/config [put]
func (h *handlers) putConfig(w http.ResponseWriter, r *http.Request) {
	format, ok := gwconfig.FormatForContentType(r.Header.Get("Content-Type"))
	if !ok {
		writeJSONError(w, http.StatusUnsupportedMediaType, types.CategoryRequest,
			"Content-Type must be application/json, application/yaml or application/toml")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, types.CategoryRequest, "request body too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, types.CategoryRequest, "could not read request body")
		return
	}
	doc, err := gwconfig.Decode(body, format)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp, err := h.svc.UpdateConfig(r.Context(), doc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// action godoc
// @Summary Start, stop or restart the gateway
// @Description Spawn failures are reported with ok=false and the crashed state, not as an HTTP error.
// @Tags gateway
// @Produce json
// @Security BasicAuth
// @Param action path string true "start, stop or restart"
// @Success 200 {object} types.ActionResponse
// @Failure 401 {object} types.ErrorResponse
// @Failure 500 {object} types.ErrorResponse
// @Router /api/gateway/{action} [post]
func (h *handlers) action(fn func(context.Context) (types.ActionResponse, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := fn(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
