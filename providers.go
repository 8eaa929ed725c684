package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const externalHTTPTimeout = 60 * time.Second

const (
	providerGroq       = "groq"
	providerOpenRouter = "openrouter"
	providerAnthropic  = "anthropic"
)

// ProviderConfig describes one upstream text-generation endpoint. Loaded
// once at startup and never mutated afterwards.
type ProviderConfig struct {
	Name     string
	Endpoint string
	// Models is the primary model followed by its fallbacks, in the order
	// the dispatcher should try them.
	Models []string
	APIKey string
	// Headers builds the request headers from the credential. Pure
	// function, no captured state.
	Headers func(apiKey string) map[string]string
	// RequestsPerMinute is the provider's advertised free-tier limit,
	// used to derive pacing intervals.
	RequestsPerMinute int
	RequestsPerDay    int
}

func (p ProviderConfig) Configured() bool {
	return p.APIKey != ""
}

func bearerHeaders(apiKey string) map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + apiKey,
	}
}

func openRouterHeaders(apiKey string) map[string]string {
	h := bearerHeaders(apiKey)
	// OpenRouter attributes free-tier traffic by referer.
	h["HTTP-Referer"] = "https://redaktor.local"
	h["X-Title"] = "redaktor"
	return h
}

// BuildProviderRegistry returns the provider precedence list: Groq first
// (fastest free tier), OpenRouter second, Anthropic last. Providers without
// a credential stay in the list; the dispatcher skips them.
func BuildProviderRegistry(cfg Config) []ProviderConfig {
	return []ProviderConfig{
		{
			Name:     providerGroq,
			Endpoint: "https://api.groq.com/openai/v1/chat/completions",
			Models: []string{
				"llama-3.3-70b-versatile",
				"llama-3.1-8b-instant",
				"gemma2-9b-it",
			},
			APIKey:            cfg.GroqAPIKey,
			Headers:           bearerHeaders,
			RequestsPerMinute: 30,
			RequestsPerDay:    14400,
		},
		{
			Name:     providerOpenRouter,
			Endpoint: "https://openrouter.ai/api/v1/chat/completions",
			Models: []string{
				"meta-llama/llama-3.3-70b-instruct:free",
				"google/gemma-2-9b-it:free",
			},
			APIKey:            cfg.OpenRouterAPIKey,
			Headers:           openRouterHeaders,
			RequestsPerMinute: 20,
			RequestsPerDay:    200,
		},
		{
			Name:     providerAnthropic,
			Endpoint: "", // SDK default base URL
			Models: []string{
				"claude-3-5-haiku-latest",
			},
			APIKey:            cfg.AnthropicAPIKey,
			Headers:           bearerHeaders,
			RequestsPerMinute: 50,
			RequestsPerDay:    0,
		},
	}
}

// callFailure carries enough of a failed provider call to classify it.
// Status 0 means the request never got an HTTP response.
type callFailure struct {
	Status int
	Body   string
	Err    error
}

func (f *callFailure) Error() string {
	if f.Status > 0 {
		return fmt.Sprintf("provider call failed (status %d): %s", f.Status, f.Body)
	}
	return fmt.Sprintf("provider call failed: %v", f.Err)
}

// --- OpenAI-schema chat completions (Groq, OpenRouter) ---

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func callChatCompletions(client *http.Client, p ProviderConfig, model, prompt string, maxTokens int) (string, *callFailure) {
	reqBody := chatRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &callFailure{Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequest("POST", p.Endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &callFailure{Err: fmt.Errorf("creating request: %w", err)}
	}
	for k, v := range p.Headers(p.APIKey) {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("llm %s network error: %v", p.Name, err)
		return "", &callFailure{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &callFailure{Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("llm %s model=%s status=%d", p.Name, model, resp.StatusCode)
		return "", &callFailure{Status: resp.StatusCode, Body: string(respBody)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &callFailure{Status: resp.StatusCode, Body: string(respBody), Err: fmt.Errorf("parsing response: %w", err)}
	}
	if parsed.Error != nil {
		return "", &callFailure{Status: resp.StatusCode, Body: parsed.Error.Message, Err: errors.New(parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return "", &callFailure{Status: resp.StatusCode, Body: string(respBody), Err: errors.New("no choices in response")}
	}

	content := parsed.Choices[0].Message.Content
	log.Printf("llm %s model=%s response size=%d", p.Name, model, len(content))
	return content, nil
}

// --- Anthropic (SDK) ---

func callAnthropic(p ProviderConfig, model, prompt string, maxTokens int) (string, *callFailure) {
	opts := []option.RequestOption{option.WithAPIKey(p.APIKey)}
	if p.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(p.Endpoint))
	}
	client := anthropic.NewClient(opts...)

	message, err := client.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			log.Printf("llm anthropic model=%s status=%d", model, apierr.StatusCode)
			return "", &callFailure{Status: apierr.StatusCode, Body: apierr.Error(), Err: err}
		}
		log.Printf("llm anthropic network error: %v", err)
		return "", &callFailure{Err: err}
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic model=%s response size=%d", model, len(block.Text))
			return block.Text, nil
		}
	}
	return "", &callFailure{Status: 200, Body: "no text content", Err: errors.New("no text content in Anthropic response")}
}
