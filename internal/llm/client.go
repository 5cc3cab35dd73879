package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// DefaultBaseURL is the OpenRouter chat-completion endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

const requestTimeout = 30 * time.Second

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams are the fixed sampling parameters sent with every
// completion request.
type GenerationParams struct {
	Temperature      float32
	MaxTokens        int
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
}

func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Temperature:      0.7,
		MaxTokens:        1000,
		TopP:             0.9,
		FrequencyPenalty: 0.5,
		PresencePenalty:  0.5,
	}
}

// RetryPolicy bounds how often a transient completion failure is retried.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second // 2^attempt seconds
		},
	}
}

// Result is what the caller always gets back: either the cleaned model
// text with Status "success", or an apologetic message with Status
// "error". Failures never escape as errors.
type Result struct {
	Text     string
	Status   string
	Attempts int
}

type completionRequest struct {
	Model            string        `json:"model"`
	Messages         []ChatMessage `json:"messages"`
	Temperature      float32       `json:"temperature"`
	MaxTokens        int           `json:"max_tokens"`
	TopP             float32       `json:"top_p"`
	FrequencyPenalty float32       `json:"frequency_penalty"`
	PresencePenalty  float32       `json:"presence_penalty"`
}

type completionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// Client talks to an OpenRouter-compatible chat-completion endpoint.
type Client struct {
	APIKey     string
	Model      string
	BaseURL    string
	Params     GenerationParams
	Retry      RetryPolicy
	HTTPClient *http.Client
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    DefaultBaseURL,
		Params:     DefaultGenerationParams(),
		Retry:      DefaultRetryPolicy(),
		HTTPClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) Complete(ctx context.Context, messages []ChatMessage) Result {
	return c.CompleteWith(ctx, messages, c.Params)
}

// CompleteWith sends the messages with explicit generation parameters.
// Rate limits (429) and transport failures are retried with exponential
// backoff; any other non-200 fails immediately.
func (c *Client) CompleteWith(ctx context.Context, messages []ChatMessage, params GenerationParams) Result {
	if c.APIKey == "" {
		return degraded(fmt.Errorf("completion API key not found, set OPENROUTER_API_KEY in your environment"), 0)
	}

	payload := completionRequest{
		Model:            c.Model,
		Messages:         messages,
		Temperature:      params.Temperature,
		MaxTokens:        params.MaxTokens,
		TopP:             params.TopP,
		FrequencyPenalty: params.FrequencyPenalty,
		PresencePenalty:  params.PresencePenalty,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return degraded(fmt.Errorf("failed to encode completion request: %w", err), 0)
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= c.Retry.MaxAttempts; attempt++ {
		attempts = attempt
		text, retryable, err := c.post(ctx, body)
		if err == nil {
			return Result{Text: CleanResponse(text), Status: StatusSuccess, Attempts: attempt}
		}
		lastErr = err
		if !retryable || attempt == c.Retry.MaxAttempts {
			break
		}
		if c.Retry.Backoff != nil {
			select {
			case <-time.After(c.Retry.Backoff(attempt)):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = c.Retry.MaxAttempts // force exit
			}
		}
	}

	log.Printf("Completion request failed after %d attempt(s): %v", attempts, lastErr)
	return degraded(lastErr, attempts)
}

func degraded(err error, attempts int) Result {
	return Result{
		Text:     fmt.Sprintf("I apologize, but I encountered an issue: %v. Please try rephrasing your question or try again later.", err),
		Status:   StatusError,
		Attempts: attempts,
	}
}

// post performs one completion attempt. retryable reports whether the
// failure is transient (rate limit or transport error).
func (c *Client) post(ctx context.Context, body []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://github.com/codewiithcherry/ASHAAIBOT")
	req.Header.Set("X-Title", "ASHA Career Assistant")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read completion response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", true, fmt.Errorf("completion API rate limited: %s", string(respBody))
	default:
		return "", false, fmt.Errorf("completion API error: %d - %s", resp.StatusCode, string(respBody))
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", false, fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("completion response contained no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}
