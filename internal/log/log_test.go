package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("JSON") != FormatJSON || ParseFormat("") != FormatText || ParseFormat("xml") != FormatText {
		t.Fatal("unexpected format mapping")
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: FormatJSON, Output: &buf, Component: ComponentLedger}).Info("hello", FieldYear, 2025)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if line[FieldComponent] != ComponentLedger || line[FieldYear] != float64(2025) {
		t.Fatalf("line = %v", line)
	}
}

func TestWithComponentReplacesAttribute(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf})
	l := base.With(FieldRequestID, "r1").WithComponent(ComponentHTTP)
	l.Info("x")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=http") {
		t.Fatalf("output = %q", out)
	}
	if !strings.Contains(out, "request_id=r1") {
		t.Fatalf("attributes lost on component change: %q", out)
	}
	if base.Component() != ComponentApp || l.Component() != ComponentHTTP {
		t.Fatalf("components = %q, %q", base.Component(), l.Component())
	}
}

func TestFieldsToSliceIsSorted(t *testing.T) {
	got := NewFields().
		WithTransaction("t1", "Lunch", -1250, "Food").
		WithError(errors.New("boom")).
		ToSlice()

	var keys []string
	for i := 0; i < len(got); i += 2 {
		keys = append(keys, got[i].(string))
	}
	want := []string{FieldAmountCents, FieldCategory, FieldDescription, FieldError, FieldTransactionID}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
}

func TestMiddlewareCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentHTTP, Output: &buf})

	var seen *Logger
	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "abc" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = FromContext(r.Context())
			seen.InfoContext(r.Context(), "handled")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == nil || seen.Component() != ComponentHTTP {
		t.Fatalf("logger from context = %+v", seen)
	}
	if !strings.Contains(buf.String(), "request_id=abc") {
		t.Fatalf("log output = %q", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != ComponentApp {
		t.Fatalf("component = %q", l.Component())
	}
}

func TestStructuredLoggerEvents(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	sl.LogHTTPEnd(ctx, r, http.StatusUnprocessableEntity, 3, "127.0.0.1")
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "status_code=422") {
		t.Fatalf("output = %q", buf.String())
	}

	buf.Reset()
	sl.LogHTTPStart(ctx, r, "127.0.0.1")
	if buf.Len() != 0 {
		t.Fatalf("start line should be debug-only, got %q", buf.String())
	}

	buf.Reset()
	sl.LogTransactionRecorded(ctx, "t1", "Lunch", -1250, "Food")
	if !strings.Contains(buf.String(), "transaction_id=t1") || !strings.Contains(buf.String(), "component=ledger") {
		t.Fatalf("output = %q", buf.String())
	}

	buf.Reset()
	sl.LogSyncCompleted(ctx, 2, 1, 0)
	if !strings.Contains(buf.String(), "pushed=2") || !strings.Contains(buf.String(), "component=sync") {
		t.Fatalf("output = %q", buf.String())
	}
}
