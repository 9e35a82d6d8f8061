package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient streams chat completions from an OpenAI-compatible
// endpoint (the stock API or any server speaking the same protocol).
type OpenAIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAIClient creates a client for the given endpoint. An empty
// baseURL defaults to the public OpenAI API.
func NewOpenAIClient(baseURL, apiKey string) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return "openai" }

// StreamCompletion sends a streaming chat completion request.
func (c *OpenAIClient) StreamCompletion(ctx context.Context, req Request) (<-chan Delta, error) {
	payload, err := json.Marshal(c.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	deltas := make(chan Delta)
	go c.streamRequest(ctx, deltas, payload)
	return deltas, nil
}

func (c *OpenAIClient) buildRequestBody(req Request) map[string]any {
	body := map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
		"stream":   true,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if len(req.Tools) > 0 {
		functions := make([]map[string]any, len(req.Tools))
		for i, t := range req.Tools {
			functions[i] = map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			}
		}
		body["functions"] = functions
	}
	return body
}

func (c *OpenAIClient) streamRequest(ctx context.Context, deltas chan<- Delta, payload []byte) {
	defer close(deltas)

	send := func(d Delta) bool {
		select {
		case deltas <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		send(Delta{Err: &ProviderError{Provider: c.Name(), Message: err.Error()}})
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		send(Delta{Err: &ProviderError{Provider: c.Name(), Message: err.Error()}})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		send(Delta{Err: &ProviderError{
			Provider: c.Name(),
			Code:     resp.StatusCode,
			Message:  strings.TrimSpace(string(body)),
		}})
		return
	}

	scanner := newSSEScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil || len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		d := Delta{Content: choice.Delta.Content}
		if fc := choice.Delta.FunctionCall; fc != nil {
			d.ToolCallName = fc.Name
			d.ToolCallArgs = fc.Arguments
		}
		d.FinishReason = normalizeFinishReason(choice.FinishReason)

		if d.Content != "" || d.ToolCallName != "" || d.ToolCallArgs != "" || d.Terminal() {
			if !send(d) {
				return
			}
		}
		if d.Terminal() {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		send(Delta{Err: &ProviderError{Provider: c.Name(), Message: err.Error()}})
		return
	}

	// Stream ended without an explicit finish; treat it as a normal stop
	// so the consumer always sees a terminal element.
	send(Delta{FinishReason: FinishReasonStop})
}

// normalizeFinishReason maps provider finish reasons to the internal
// vocabulary.
func normalizeFinishReason(reason string) string {
	switch reason {
	case "":
		return ""
	case "function_call", "tool_calls":
		return FinishReasonToolCall
	case "length", "max_tokens":
		return FinishReasonLength
	default:
		return FinishReasonStop
	}
}

// Wire structures for streamed chunks.

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content      string        `json:"content"`
			FunctionCall *FunctionCall `json:"function_call"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
