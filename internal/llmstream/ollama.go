package llmstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaConfig holds the connection details for an Ollama server.
type OllamaConfig struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// DefaultOllamaConfig mirrors the teacher platform's client defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL:        "http://localhost:11434",
		Model:          "qwen2.5:14b",
		TimeoutSeconds: 120,
	}
}

// OllamaClient is a direct streaming client for the Ollama chat API,
// implementing Client. Grounded on the teacher platform's
// client.OllamaClient.ChatStreamWithHistory, adapted from a
// (chunk, done)-callback shape to the per-token callback Engine drives,
// and made to honor ctx cancellation mid-stream rather than only
// checking it between scanner reads.
type OllamaClient struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewOllamaClient builds a client. The underlying http.Client carries no
// request timeout: streaming responses can legitimately run far longer
// than any fixed deadline, so cancellation is the caller's ctx, not a
// client-side timer.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	return &OllamaClient{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		http:    &http.Client{},
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

// ollamaOptions carries Ollama's per-request sampler overrides.
// gptOSSOptions sets the values spec.md §4.5 mandates for the gpt-oss
// family: a max_tokens cap plus fixed temperature and top_p values.
// Requests for the other families carry no options, so the server's
// defaults apply to them.
type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

var gptOSSOptions = &ollamaOptions{
	NumPredict:  2048,
	Temperature: 0.3,
	TopP:        0.95,
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// StreamChat implements Client by POSTing a streaming chat request to
// Ollama and invoking onToken for each newline-delimited JSON chunk's
// message content, in arrival order. It returns promptly once ctx is
// cancelled, ctx.Err() is the returned error in that case, satisfying
// spec.md §8's cancellation-promptness invariant.
func (c *OllamaClient) StreamChat(ctx context.Context, messages []Message, family Family, onToken func(token string) error) error {
	ollamaMessages := make([]ollamaMessage, len(messages))
	for i, m := range messages {
		ollamaMessages[i] = ollamaMessage{Role: m.Role, Content: m.Content}
	}

	chatReq := ollamaChatRequest{Model: c.model, Messages: ollamaMessages, Stream: true}
	if family == FamilyGPTOSS {
		chatReq.Options = gptOSSOptions
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return fmt.Errorf("marshal ollama chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ollama chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(respBody))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}

		if chunk.Message.Content != "" {
			if err := onToken(chunk.Message.Content); err != nil {
				return err
			}
		}

		if chunk.Done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ollama stream: %w", err)
	}
	return nil
}

// HealthCheck reports whether the Ollama server is reachable.
func (c *OllamaClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build health check request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req = req.WithContext(timeoutCtx)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
