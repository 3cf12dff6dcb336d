package llm

import (
	"context"
	"encoding/json"
)

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest asks for a structured completion constrained by a JSON schema.
type GenerateRequest struct {
	Model  string
	Prompt string
	// Schema is a JSON-schema document the response must satisfy.
	Schema json.RawMessage
}

// Client is the capability surface every component consumes. All three calls
// are blocking round trips that fail with a transport or protocol error the
// caller is expected to catch and degrade on.
type Client interface {
	// Generate returns a JSON document satisfying the request schema.
	Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error)
	// Chat sends a conversation and returns the assistant's reply.
	Chat(ctx context.Context, model string, messages []Message) (string, error)
	// Embed returns one embedding vector per input, in input order.
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}
