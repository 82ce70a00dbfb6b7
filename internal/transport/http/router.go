package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"curricula/internal/platform/middleware"
	dErrors "curricula/pkg/domain-errors"
)

// NewRouter wires the middleware chain and all public endpoints. Handlers
// delegate to domain services so transport concerns remain isolated.
func NewRouter(auth *AuthHandler, tracer trace.Tracer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(tracer))
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	auth.Register(r)

	return r
}

// writeError centralizes domain error translation to HTTP responses. Internal
// details never reach the client; they go to the log with the request id.
func (h *AuthHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeInternal
	message := "internal server error"

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		if code != dErrors.CodeInternal {
			message = domainErr.Message
		}
	}

	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), "request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (h *AuthHandler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write response",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}
}
