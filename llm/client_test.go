package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Daham-Mustaf/semantic-policy-generation/model"
)

// testProvider is a minimal OpenAI-compatible provider for client tests.
type testProvider struct{}

func (testProvider) Name() string { return "test" }

func (testProvider) BuildURL(baseURL string) string { return baseURL + "/chat/completions" }

func (testProvider) SetHeaders(req *http.Request) {}

func (testProvider) BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int) ([]byte, error) {
	return json.Marshal(map[string]any{
		"model":    model,
		"messages": messages,
	})
}

func (testProvider) ParseResponse(body []byte, model string) (*Response, error) {
	var resp struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &Response{Content: resp.Content, Model: model}, nil
}

func init() {
	RegisterProvider(testProvider{})
}

func testRegistry(url string) *model.Registry {
	return model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityReasoning: {Preferred: []string{"primary"}},
		},
		map[string]*model.EndpointConfig{
			"primary": {Provider: "test", URL: url, Model: "test-model"},
		},
	)
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}
}

func TestClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"content": "hello"}`)
	}))
	defer server.Close()

	client := NewClient(testRegistry(server.URL), WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), Request{
		Capability: "reasoning",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("unexpected content: %q", resp.Content)
	}
	if resp.RequestID == "" {
		t.Error("expected a request ID")
	}
}

func TestClientRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"content": "recovered"}`)
	}))
	defer server.Close()

	client := NewClient(testRegistry(server.URL), WithRetryConfig(fastRetry()))

	resp, err := client.Complete(context.Background(), Request{
		Capability: "reasoning",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "recovered" {
		t.Errorf("unexpected content: %q", resp.Content)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestClientFatalErrorStopsRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testRegistry(server.URL), WithRetryConfig(fastRetry()))

	_, err := client.Complete(context.Background(), Request{
		Capability: "reasoning",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsFatal(err) {
		t.Errorf("expected fatal error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call (no retry on fatal), got %d", got)
	}
}

func TestClientRateLimitIsTransient(t *testing.T) {
	err := classifyHTTPError(http.StatusTooManyRequests, []byte("slow down"))
	if !IsTransient(err) {
		t.Errorf("expected 429 to be transient, got %v", err)
	}

	err = classifyHTTPError(http.StatusBadRequest, []byte("bad"))
	if !IsFatal(err) {
		t.Errorf("expected 400 to be fatal, got %v", err)
	}
}

func TestClientValidatesRequest(t *testing.T) {
	client := NewClient(testRegistry("http://unused"))

	if _, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}}); err == nil {
		t.Error("expected error for missing capability")
	}
	if _, err := client.Complete(context.Background(), Request{Capability: "reasoning"}); err == nil {
		t.Error("expected error for missing messages")
	}
}

type captureRecorder struct {
	records []*CallRecord
}

func (r *captureRecorder) RecordCall(_ context.Context, record *CallRecord) error {
	r.records = append(r.records, record)
	return nil
}

func TestClientRecordsCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content": "ok"}`)
	}))
	defer server.Close()

	recorder := &captureRecorder{}
	client := NewClient(testRegistry(server.URL),
		WithRetryConfig(fastRetry()),
		WithRecorder(recorder))

	_, err := client.Complete(context.Background(), Request{
		Capability: "reasoning",
		Messages:   []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if len(recorder.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recorder.records))
	}
	record := recorder.records[0]
	if record.Capability != "reasoning" {
		t.Errorf("unexpected capability: %s", record.Capability)
	}
	if record.Response != "ok" {
		t.Errorf("unexpected response: %s", record.Response)
	}
	if record.Error != "" {
		t.Errorf("unexpected error: %s", record.Error)
	}
}
