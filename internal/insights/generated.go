package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	defaultCompletionBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultCompletionModel   = "gpt-4o-mini"
	completionMaxRetries     = 3
	completionInitialDelay   = 1 * time.Second
)

// CompletionClient is a minimal client for an OpenAI-compatible chat
// completions endpoint
type CompletionClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewCompletionClient creates a client. Empty baseURL and model fall back
// to the OpenAI defaults.
func NewCompletionClient(apiKey, baseURL, model string) *CompletionClient {
	if baseURL == "" {
		baseURL = defaultCompletionBaseURL
	}
	if model == "" {
		model = defaultCompletionModel
	}
	return &CompletionClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Complete sends a single-message prompt and returns the first choice.
// Retries with exponential backoff on rate limits and server errors.
func (c *CompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("completion API key not set")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < completionMaxRetries; attempt++ {
		if attempt > 0 {
			delay := completionInitialDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr chatError
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
				lastErr = fmt.Errorf("completion API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
			} else {
				lastErr = fmt.Errorf("completion API error (%d): %s", resp.StatusCode, string(respBody))
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return "", lastErr
		}

		var chatResp chatResponse
		if err := json.Unmarshal(respBody, &chatResp); err != nil {
			return "", fmt.Errorf("failed to decode response: %w", err)
		}
		if len(chatResp.Choices) == 0 {
			return "", fmt.Errorf("no choices returned")
		}
		return chatResp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("max retries (%d) exceeded: %w", completionMaxRetries, lastErr)
}

// completer is satisfied by CompletionClient
type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeneratedRecommender phrases the top signal through a text-generation
// backend. Signal detection and selection stay deterministic; only the
// wording is delegated, and any failure falls back to the deterministic
// templates so the backend is never a correctness dependency.
type GeneratedRecommender struct {
	client   completer
	fallback DeterministicRecommender
}

// NewGeneratedRecommender wraps a completion client
func NewGeneratedRecommender(client *CompletionClient) *GeneratedRecommender {
	return &GeneratedRecommender{client: client}
}

func (r *GeneratedRecommender) Recommend(ctx context.Context, signals []Signal) (*Insight, error) {
	if len(signals) == 0 {
		return r.fallback.Recommend(ctx, signals)
	}

	base, err := r.fallback.Recommend(ctx, signals)
	if err != nil {
		return nil, err
	}

	text, err := r.client.Complete(ctx, buildPrompt(signals, base))
	if err != nil {
		log.Printf("insight generation failed, using deterministic recommendation: %v", err)
		return base, nil
	}

	generated, ok := parseInsight(text)
	if !ok {
		log.Printf("insight generation returned an unparseable response, using deterministic recommendation")
		return base, nil
	}
	generated.Signal = base.Signal
	generated.Impact = base.Impact
	return generated, nil
}

// buildPrompt serializes the signal bundle into a constrained request:
// a fixed five-field template and a closed list of allowed actions
func buildPrompt(signals []Signal, top *Insight) string {
	var b strings.Builder
	b.WriteString("You are a family-routine coach. Detected behavioral signals from task telemetry:\n")
	for _, s := range signals {
		fmt.Fprintf(&b, "- %s (impact %d, magnitude %.1f)\n", s.Name, s.Impact, s.Magnitude)
	}
	fmt.Fprintf(&b, "\nThe highest-impact signal is %q. Write one recommendation about it.\n", top.Signal)
	b.WriteString("Your recommendation MUST be one of the following actions:\n")
	for _, action := range recommendationActions {
		fmt.Fprintf(&b, "- %s\n", action)
	}
	b.WriteString("\nAnswer using exactly this template, one field per line:\n")
	b.WriteString("Observation: <what the data shows>\n")
	b.WriteString("Diagnosis: <why it is happening>\n")
	b.WriteString("Recommendation: <one allowed action>\n")
	b.WriteString("Expected Result: <what should change>\n")
	b.WriteString("Next Check: <when and what to re-measure>\n")
	return b.String()
}

// parseInsight extracts the five fields by their section headers. All
// five must be present and non-empty for the response to be accepted.
func parseInsight(text string) (*Insight, bool) {
	fields := map[string]string{}
	current := ""
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(strings.TrimLeft(line, "#*- "))
		matched := false
		for _, header := range []string{"Observation", "Diagnosis", "Recommendation", "Expected Result", "Next Check"} {
			rest, ok := cutHeader(trimmed, header)
			if ok {
				current = header
				fields[current] = rest
				matched = true
				break
			}
		}
		if !matched && current != "" && trimmed != "" {
			fields[current] = strings.TrimSpace(fields[current] + " " + trimmed)
		}
	}

	out := &Insight{
		Observation:    fields["Observation"],
		Diagnosis:      fields["Diagnosis"],
		Recommendation: fields["Recommendation"],
		ExpectedResult: fields["Expected Result"],
		NextCheck:      fields["Next Check"],
	}
	if out.Observation == "" || out.Diagnosis == "" || out.Recommendation == "" ||
		out.ExpectedResult == "" || out.NextCheck == "" {
		return nil, false
	}
	return out, true
}

// cutHeader strips a "Header:" prefix case-insensitively
func cutHeader(line, header string) (string, bool) {
	if len(line) < len(header)+1 {
		return "", false
	}
	if !strings.EqualFold(line[:len(header)], header) {
		return "", false
	}
	rest := strings.TrimSpace(line[len(header):])
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(rest, ":")), true
}
