package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Ollama implements Client against an Ollama-compatible HTTP API.
type Ollama struct {
	baseURL string
	client  *http.Client
}

// NewOllama creates a client targeting the given Ollama instance.
func NewOllama(baseURL string, timeout time.Duration) *Ollama {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Ollama{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string          `json:"model"`
	Prompt string          `json:"prompt"`
	Format json.RawMessage `json:"format,omitempty"`
	Stream bool            `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Message Message `json:"message"`
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Generate calls /api/generate with the schema as the structured-output format
// and validates the returned document against that same schema.
func (o *Ollama) Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error) {
	var result generateResponse
	err := o.post(ctx, "/api/generate", generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Format: req.Schema,
		Stream: false,
	}, &result)
	if err != nil {
		return nil, err
	}

	doc := json.RawMessage(result.Response)
	if err := validate(req.Schema, doc); err != nil {
		return nil, fmt.Errorf("structured response: %w", err)
	}
	return doc, nil
}

// Chat sends a conversation to /api/chat and returns the assistant's reply.
func (o *Ollama) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	var result chatResponse
	err := o.post(ctx, "/api/chat", chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.Message.Content, nil
}

// Embed sends a batch of texts to /api/embed. The returned slice has the same
// length and order as the input.
func (o *Ollama) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	var result embedResponse
	err := o.post(ctx, "/api/embed", embedRequest{
		Model: model,
		Input: inputs,
	}, &result)
	if err != nil {
		return nil, err
	}

	if len(result.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(result.Embeddings))
	}
	return result.Embeddings, nil
}

func (o *Ollama) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama %s returned %d: %s", path, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// validate checks a JSON document against a JSON schema. A schema that fails
// to compile or a document that fails validation are both protocol errors.
func validate(schema, doc json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("schema violation: %s", errs[0])
		}
		return fmt.Errorf("schema violation")
	}
	return nil
}

// ModelInfo describes a model returned by /api/tags.
type ModelInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ListModels queries /api/tags and returns the locally available models.
func (o *Ollama) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama /api/tags returned %d", resp.StatusCode)
	}

	var result tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}
	return result.Models, nil
}
