// Package generator wraps the Gemini API behind the domain.Generator
// interface.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"google.golang.org/genai"

	"ayaka/internal/config"
	"ayaka/internal/domain"
)

const maxRetries = 3

const systemInstruction = `You are a friendly AI assistant with expertise in cryptocurrency, stock trading, and general conversation. Your role is to:

1. For crypto/stocks topics: Provide accurate, educational information with safety-focused advice
2. For general conversation: Be helpful, engaging, and supportive on any topic
3. Break down complex concepts into easy-to-understand explanations
4. Be encouraging and maintain a conversational, friendly tone
5. Use examples and analogies to make learning easier
6. Encourage questions and deeper exploration
7. Always prioritize helpful, accurate responses

You can discuss anything - from crypto and stocks to daily life, hobbies, technology, or any other topics users want to chat about. Be a supportive conversation companion.`

// Gemini is the production text generator.
type Gemini struct {
	client    *genai.Client
	model     string
	temp      float32
	maxTokens int32
	logger    *slog.Logger
}

func NewGemini(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		model:     cfg.Model,
		temp:      float32(cfg.Temperature),
		maxTokens: int32(cfg.MaxOutputTokens),
		logger:    logger,
	}, nil
}

// Reply generates a conversational reply under the assistant persona.
func (g *Gemini) Reply(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(g.temp),
		MaxOutputTokens:   g.maxTokens,
	}

	text, err := g.generate(ctx, prompt, cfg)
	if err != nil {
		return "", &domain.GenerationError{Op: "reply", Err: err}
	}
	return text, nil
}

// QuizQuestion asks the model to author a fresh multiple-choice question.
func (g *Gemini) QuizQuestion(ctx context.Context, topic, difficulty string) (string, error) {
	prompt := fmt.Sprintf(`Generate a %s level multiple choice quiz question about %s.

Format your response as:
Question: [your question]
A) [option 1]
B) [option 2]
C) [option 3]
D) [option 4]
Correct Answer: [A/B/C/D]
Explanation: [brief explanation of why this is correct]

Make sure the question is educational and helps reinforce learning.`, difficulty, topic)

	text, err := g.generate(ctx, prompt, nil)
	if err != nil {
		return "", &domain.GenerationError{Op: "quiz", Err: err}
	}
	return text, nil
}

// Explain generates a level-appropriate explanation of a concept.
func (g *Gemini) Explain(ctx context.Context, concept, level string) (string, error) {
	prompt := fmt.Sprintf(`Explain the concept of %q in cryptocurrency or stock trading to a %s level learner.

Guidelines:
- Use simple, clear language appropriate for %s level
- Include practical examples
- Use analogies if helpful
- Be encouraging and supportive
- Use emojis and formatting for engagement
- Keep it concise but comprehensive`, concept, level, level)

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(0.6)),
		MaxOutputTokens: 800,
	}

	text, err := g.generate(ctx, prompt, cfg)
	if err != nil {
		return "", &domain.GenerationError{Op: "explain", Err: err}
	}
	return text, nil
}

// generate calls the model with exponential backoff retry for transient
// errors (network failures, 5xx, 429).
func (g *Gemini) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with jitter to prevent thundering herd.
			base := time.Duration(attempt*attempt) * time.Second
			jitter := time.Duration(rand.Int64N(int64(base/2 + 1)))
			backoff := base + jitter
			g.logger.Warn("retrying generation", "attempt", attempt+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		if err != nil {
			lastErr = err
			if attempt < maxRetries && isTransient(err) {
				g.logger.Warn("generation failed, will retry", "error", err)
				continue
			}
			return "", fmt.Errorf("generate content: %w", err)
		}

		text := resp.Text()
		if text == "" {
			return "", errors.New("empty response from model")
		}
		return text, nil
	}

	return "", lastErr
}

func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 || apiErr.Code == http.StatusTooManyRequests
	}
	// Plain transport errors are worth one more try.
	return true
}
