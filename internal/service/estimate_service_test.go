package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func estimateServerReplying(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "" {
			t.Error("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		resp := map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newEstimateServiceForTest(baseURL string) *estimateService {
	svc := NewEstimateService("sk-test", "claude-haiku-4-5", zerolog.Nop()).(*estimateService)
	svc.baseURL = baseURL
	return svc
}

func TestEstimatePlainJSONReply(t *testing.T) {
	srv := estimateServerReplying(t, `{"billable_hours": 2.5, "description": "Drafted motion to dismiss"}`)
	defer srv.Close()

	svc := newEstimateServiceForTest(srv.URL)
	est, err := svc.EstimateFromNarrative(context.Background(), "spent the afternoon on the motion")
	if err != nil {
		t.Fatal(err)
	}
	if est.BillableHours != 2.5 || est.Description != "Drafted motion to dismiss" {
		t.Fatalf("unexpected estimate %+v", est)
	}
}

func TestEstimateFencedReply(t *testing.T) {
	srv := estimateServerReplying(t, "```json\n{\"billable_hours\": 0.5, \"description\": \"Client call\"}\n```")
	defer srv.Close()

	svc := newEstimateServiceForTest(srv.URL)
	est, err := svc.EstimateFromNarrative(context.Background(), "quick call with the client")
	if err != nil {
		t.Fatal(err)
	}
	if est.BillableHours != 0.5 {
		t.Fatalf("unexpected estimate %+v", est)
	}
}

func TestEstimateJSONBuriedInProse(t *testing.T) {
	srv := estimateServerReplying(t, `Sure! Here's my suggestion: {"billable_hours": 1.2, "description": "Reviewed exhibits {A} and \"B\""} Hope that helps.`)
	defer srv.Close()

	svc := newEstimateServiceForTest(srv.URL)
	est, err := svc.EstimateFromNarrative(context.Background(), "looked at the exhibits")
	if err != nil {
		t.Fatal(err)
	}
	if est.Description != `Reviewed exhibits {A} and "B"` {
		t.Fatalf("description = %q", est.Description)
	}
}

func TestEstimateUnparseableReplyIsAnError(t *testing.T) {
	for _, text := range []string{
		"I cannot help with that.",
		`{"billable_hours": "two", "description": "oops"}`,
		`{"description": "missing the hours field"}`,
		`{"billable_hours": 99, "description": "out of range"}`,
	} {
		srv := estimateServerReplying(t, text)
		svc := newEstimateServiceForTest(srv.URL)
		est, err := svc.EstimateFromNarrative(context.Background(), "some work")
		srv.Close()
		if err == nil {
			t.Fatalf("reply %q accepted as %+v", text, est)
		}
	}
}

func TestEstimateEmptyNarrative(t *testing.T) {
	svc := newEstimateServiceForTest("http://unused.invalid")
	_, err := svc.EstimateFromNarrative(context.Background(), "   ")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestEstimateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "rate_limit_error", "message": "rate limited"},
		})
	}))
	defer srv.Close()

	svc := newEstimateServiceForTest(srv.URL)
	if _, err := svc.EstimateFromNarrative(context.Background(), "some work"); err == nil {
		t.Fatal("expected upstream error")
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{`noise {"a":{"b":2}} trailing`, `{"a":{"b":2}}`, true},
		{`{"s":"brace } inside"}`, `{"s":"brace } inside"}`, true},
		{`{"s":"escaped \" quote }"}`, `{"s":"escaped \" quote }"}`, true},
		{`no object here`, "", false},
		{`{"unclosed": 1`, "", false},
	}
	for _, tt := range tests {
		got, ok := extractJSONObject(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("extractJSONObject(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
