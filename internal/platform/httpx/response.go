package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vintora/catalog-api/internal/platform/requestctx"
)

// Envelope is the canonical JSON payload returned by every mutation endpoint:
// {success, message, payload?}. Domain failures ride in a 200 response with
// success=false; transport-level failures (bad JSON, auth) use 4xx statuses
// with the same shape.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Payload   any    `json:"payload,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
}

// OK builds a success envelope with an optional payload.
func OK(message string, payload any) Envelope {
	return Envelope{Success: true, Message: sanitize(message, 512), Payload: payload}
}

// Fail builds a failure envelope carrying a localized message.
func Fail(message string) Envelope {
	return Envelope{Success: false, Message: sanitize(message, 512)}
}

// Write serialises the envelope as JSON with the given HTTP status, attaching
// request and trace identifiers from context.
func Write(ctx context.Context, w http.ResponseWriter, status int, envelope Envelope) {
	if status == 0 {
		status = http.StatusOK
	}
	if envelope.RequestID == "" {
		envelope.RequestID = sanitize(middleware.GetReqID(ctx), 80)
	}
	if envelope.TraceID == "" {
		envelope.TraceID = sanitize(requestctx.TraceID(ctx), 64)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

// WriteOK writes a 200 success envelope.
func WriteOK(ctx context.Context, w http.ResponseWriter, message string, payload any) {
	Write(ctx, w, http.StatusOK, OK(message, payload))
}

// WriteFail writes a domain failure: HTTP 200 with success=false.
func WriteFail(ctx context.Context, w http.ResponseWriter, message string) {
	Write(ctx, w, http.StatusOK, Fail(message))
}

// WriteError writes a transport-level failure with the given status code.
func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	Write(ctx, w, status, Fail(message))
}

func sanitize(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
