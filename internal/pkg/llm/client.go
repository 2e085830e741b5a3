// Package llm wraps the Gemini SDK behind a small text-in/text-out interface
// with key rotation, so domain services never touch provider types directly.
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	generativeAI "github.com/FACorreiaa/go-genai-sdk/lib"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Caller is the LLM collaborator used by the orchestration pipeline. Every
// call names the pipeline role so the pool can pin and rotate keys per role.
type Caller interface {
	Generate(ctx context.Context, role Role, prompt string) (string, error)
}

const maxRetryDelay = 10 * time.Second

// Client implements Caller on top of the Gemini SDK with a rotating key
// pool. One SDK client is kept per key.
type Client struct {
	pool   *KeyPool
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]*generativeAI.LLMChatClient
}

func NewClient(pool *KeyPool, logger *zap.Logger) *Client {
	return &Client{
		pool:    pool,
		logger:  logger,
		clients: make(map[string]*generativeAI.LLMChatClient),
	}
}

func (c *Client) clientForKey(ctx context.Context, apiKey string) (*generativeAI.LLMChatClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.clients[apiKey]; ok {
		return cl, nil
	}
	cl, err := generativeAI.NewLLMChatClient(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}
	c.clients[apiKey] = cl
	return cl, nil
}

// Generate sends prompt under the key pinned to role and returns the first
// candidate text. On a rate limit rejection it rotates the role to the next
// key and retries, at most once per key in the pool.
func (c *Client) Generate(ctx context.Context, role Role, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.2)}

	apiKey := c.pool.Assign(role)
	var lastErr error
	for attempt := 0; attempt < c.pool.Size(); attempt++ {
		aiClient, err := c.clientForKey(ctx, apiKey)
		if err != nil {
			return "", err
		}

		response, err := aiClient.GenerateResponse(ctx, prompt, config)
		if err == nil {
			txt := extractText(response)
			if txt == "" {
				return "", fmt.Errorf("no valid content from AI for role %s", role)
			}
			return txt, nil
		}
		lastErr = err

		if !IsRateLimited(err) {
			return "", fmt.Errorf("failed to generate response for role %s: %w", role, err)
		}

		delay := RetryDelay(err, maxRetryDelay)
		c.logger.Warn("Rate limited, rotating key",
			zap.String("role", string(role)),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		apiKey = c.pool.Rotate(role)
	}

	return "", fmt.Errorf("all keys exhausted for role %s: %w", role, lastErr)
}

func extractText(response *genai.GenerateContentResponse) string {
	if response == nil {
		return ""
	}
	for _, candidate := range response.Candidates {
		if candidate.Content != nil && len(candidate.Content.Parts) > 0 {
			return candidate.Content.Parts[0].Text
		}
	}
	return ""
}
