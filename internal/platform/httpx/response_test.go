package httpx

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vintora/catalog-api/internal/platform/requestctx"
)

func TestWriteOKIncludesRequestAndTraceIDs(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{TraceID: "trace-abc"})

	rec := httptest.NewRecorder()
	WriteOK(ctx, rec, "Product updated", map[string]string{"id": "p1"})

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}

	var envelope Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !envelope.Success {
		t.Fatal("expected success=true")
	}
	if envelope.Message != "Product updated" {
		t.Fatalf("unexpected message %q", envelope.Message)
	}
	if envelope.RequestID != "req-123" || envelope.TraceID != "trace-abc" {
		t.Fatalf("expected ids propagated, got %q/%q", envelope.RequestID, envelope.TraceID)
	}
}

func TestWriteFailUsesHTTP200(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteFail(context.Background(), rec, "Product not found")

	if rec.Code != 200 {
		t.Fatalf("domain failures ride 200 responses, got %d", rec.Code)
	}
	var envelope Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Success {
		t.Fatal("expected success=false")
	}
	if envelope.Payload != nil {
		t.Fatalf("expected payload omitted, got %v", envelope.Payload)
	}
}

func TestWriteErrorSanitizesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, 400, "bad\nrequest\r"+strings.Repeat("x", 600))

	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var envelope Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if strings.ContainsAny(envelope.Message, "\n\r") {
		t.Fatal("expected newlines stripped")
	}
	if len(envelope.Message) > 512 {
		t.Fatalf("expected message truncated, got %d bytes", len(envelope.Message))
	}
}
