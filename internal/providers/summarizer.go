package providers

import (
	"bytes"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hoangtranvan/speaker-id-service/internal/domain/entities"
	apperrors "github.com/hoangtranvan/speaker-id-service/errors"
	"github.com/hoangtranvan/speaker-id-service/pkg/config"
)

// Summarizer is the C9/§4.12-facing contract for the text summarization
// provider: given a labeled transcript, return a structured summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (entities.Summary, error)
}

// GroqSummarizer drives a Groq-compatible chat completions endpoint.
type GroqSummarizer struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	timeout time.Duration
}

// NewGroqSummarizer constructs a Summarizer from configuration.
func NewGroqSummarizer(cfg config.SummaryConfig) *GroqSummarizer {
	return &GroqSummarizer{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		timeout: cfg.Timeout,
	}
}

type chatRequest struct {
	Model       string      `json:"model"`
	Messages    interface{} `json:"messages"`
	Temperature float64     `json:"temperature"`
	MaxTokens   int         `json:"max_tokens"`
	ResponseFmt struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type summaryPayload struct {
	Overview    string   `json:"overview"`
	ActionItems []string `json:"action_items"`
	KeyPoints   []string `json:"key_points"`
}

// Summarize asks the provider to reduce transcript into a structured
// summary, retrying transient failures with backoff.
func (g *GroqSummarizer) Summarize(ctx context.Context, transcript string) (entities.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Summarize this meeting transcript. Reply with strict JSON having keys "+
			"\"overview\" (string), \"action_items\" (string array), \"key_points\" (string array).\n\n%s",
		transcript,
	)

	reqBody := chatRequest{
		Model:       g.model,
		Messages:    []map[string]string{{"role": "user", "content": prompt}},
		Temperature: 0.2,
		MaxTokens:   2000,
	}
	reqBody.ResponseFmt.Type = "json_object"

	body, err := json.Marshal(reqBody)
	if err != nil {
		return entities.Summary{}, apperrors.NewInternal(err)
	}

	var content string
	operation := func() error {
		endpoint := g.baseURL + "/openai/v1/chat/completions"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("summarizer: status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("summarizer: status %d", resp.StatusCode))
		}

		var cr chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			return backoff.Permanent(err)
		}
		if len(cr.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("summarizer: empty response"))
		}
		content = cr.Choices[0].Message.Content
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if stdErrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return entities.Summary{}, apperrors.NewProviderTimeout("summary", err)
		}
		return entities.Summary{}, apperrors.NewProviderError("summary", err)
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return entities.Summary{}, apperrors.NewProviderError("summary", fmt.Errorf("malformed summary payload: %w", err))
	}

	return entities.Summary{
		Overview:    payload.Overview,
		ActionItems: payload.ActionItems,
		KeyPoints:   payload.KeyPoints,
	}, nil
}
