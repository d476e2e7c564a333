package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/pkg/circuitbreaker"
	"github.com/scheme-sahayak/backend/pkg/logger"
	"github.com/scheme-sahayak/backend/pkg/retry"
)

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

func NewClient(apiKey, baseURL, model string, temperature float32, maxTokens, timeoutSec int) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    2,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	timeout := time.Duration(timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	logger.Info("LLM client initialized",
		zap.String("model", model),
		zap.Duration("timeout", timeout),
	)

	return &Client{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserPrompt,
		},
	}

	var content string

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: temperature,
					MaxTokens:   maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			content = resp.Choices[0].Message.Content
			return nil
		})
	})

	if err != nil {
		return "", err
	}

	return content, nil
}

// AnalyzeSearchQuery classifies a raw search utterance and extracts
// English search keywords for it.
func (c *Client) AnalyzeSearchQuery(ctx context.Context, text string) (string, error) {
	systemPrompt := `You are a query analyzer for an Indian government-scheme assistant.
Classify the user's search text and extract keywords.

Return ONLY a JSON object:
{"intent": "scheme_search" or "general_doubt",
 "keywords": [3 to 5 English search keywords, translating Hindi/Tamil words and expanding synonyms],
 "language": "en" or "hi" or "ta"}`

	userPrompt := fmt.Sprintf("Analyze this search text: %s", text)

	return c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.1,
		MaxTokens:    200,
	})
}

// AnalyzeConversationIntent asks the model for a structured intent
// object given the utterance, the recent dialogue transcript and any
// directly matched schemes as JSON context.
func (c *Client) AnalyzeConversationIntent(ctx context.Context, utterance, transcript, schemesJSON string) (string, error) {
	systemPrompt := `You are an assistant helping citizens find Indian government benefit schemes.
Analyze the user's latest message in the context of the conversation.

Rules:
- Reference facts the user already shared; never ask again for information present in the history.
- If the request is broad or ambiguous, keep confidence below 0.9 unless an exact scheme name was given.
- If the request is outside government-scheme topics, report low confidence.

Return ONLY a JSON object:
{"intent": "short snake_case topic, e.g. pension_enquiry",
 "missing_fields": ["fields still needed to judge eligibility"],
 "confidence": 0.0 to 1.0,
 "suggested_schemes": ["scheme names"],
 "follow_up_question": "one question to ask next, or empty",
 "explanation": "plain-language answer grounded in the conversation",
 "navigation_step": "next concrete action for the user, or null"}`

	userPrompt := fmt.Sprintf(`Conversation so far:
%s

Matched schemes (JSON):
%s

User's latest message: %s`, transcript, schemesJSON, utterance)

	return c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.3,
		MaxTokens:    600,
	})
}

// GenerateFAQs prompts for FAQ entries derived from the most popular
// tracked queries.
func (c *Client) GenerateFAQs(ctx context.Context, contextBlock string, count int) (string, error) {
	systemPrompt := fmt.Sprintf(`You write FAQ entries for an Indian government-scheme help portal.
Given popular user searches, write exactly %d frequently-asked questions with helpful answers.

Return ONLY a JSON array of exactly %d objects:
[{"question": "...", "answer": "...", "category": "..."}]`, count, count)

	userPrompt := fmt.Sprintf("Most searched topics:\n%s", contextBlock)

	return c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.4,
		MaxTokens:    800,
	})
}
