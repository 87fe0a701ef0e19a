package llm

import (
	"context"
	"time"
)

// CallRecord captures one oracle call for the audit trail.
type CallRecord struct {
	// RequestID uniquely identifies this oracle call.
	RequestID string `json:"request_id"`

	// Capability is the semantic capability requested.
	Capability string `json:"capability"`

	// Model is the actual model that served the call.
	Model string `json:"model,omitempty"`

	// Provider is the oracle provider (anthropic, ollama, openai).
	Provider string `json:"provider,omitempty"`

	// Messages is the input message history sent to the oracle.
	Messages []Message `json:"messages"`

	// Response is the generated content.
	Response string `json:"response,omitempty"`

	// Usage holds token consumption when reported.
	Usage TokenUsage `json:"usage"`

	// Error is set when the call failed.
	Error string `json:"error,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Recorder persists oracle call records. Implementations must tolerate
// concurrent use; the client logs and swallows recorder errors.
type Recorder interface {
	RecordCall(ctx context.Context, record *CallRecord) error
}
