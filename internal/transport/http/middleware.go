package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cimillas/ticket-resale/internal/domain"
	"github.com/cimillas/ticket-resale/internal/signer"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 16 << 10
)

type contextKey int

const (
	requestIDKey contextKey = iota
	callerKey
)

// RequestID tags each request with an id, reusing the client's X-Request-ID
// when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestLogger logs basic request details and latency.
func RequestLogger(next http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", requestIDFromContext(r.Context())),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestVerifier authenticates the caller of a signed request.
type RequestVerifier interface {
	Verify(r *http.Request, body []byte) (domain.Identity, error)
}

// RequireSigner rejects requests without a valid signature and stores the
// signer's identity in the request context. The body is buffered for
// verification and handed to next unchanged.
func RequireSigner(verifier RequestVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		caller, err := verifier.Verify(r, body)
		if err != nil {
			msg := "unauthorized"
			if errors.Is(err, signer.ErrMissingSignature) ||
				errors.Is(err, signer.ErrBadSignature) ||
				errors.Is(err, signer.ErrStaleSignature) {
				msg = err.Error()
			}
			writeError(w, http.StatusUnauthorized, codeUnauthorized, msg)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, caller)))
	})
}

func callerFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(callerKey).(domain.Identity)
	return id, ok && !id.IsZero()
}
