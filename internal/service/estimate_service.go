package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	anthropicBaseURL          = "https://api.anthropic.com/v1"
	anthropicMessagesEndpoint = "/messages"
)

// Estimate is a model-produced suggestion for a billable entry.
type Estimate struct {
	BillableHours float64 `json:"billable_hours"`
	Description   string  `json:"description"`
}

// EstimateService turns a free-text work narrative into a suggested hours
// figure and polished description using an LLM. Estimates are advisory; they
// never write anything.
type EstimateService interface {
	EstimateFromNarrative(ctx context.Context, narrative string) (*Estimate, error)
}

type estimateService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	logger  zerolog.Logger
}

func NewEstimateService(apiKey, model string, logger zerolog.Logger) EstimateService {
	return &estimateService{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: anthropicBaseURL,
		apiKey:  apiKey,
		model:   model,
		logger:  logger.With().Str("service", "estimate").Logger(),
	}
}

const estimatePrompt = `You are an assistant for a legal billing tool. Given a lawyer's informal narrative of work performed, reply with a JSON object and nothing else:
{"billable_hours": <number, a multiple of 0.1 between 0.1 and 24>, "description": "<concise professional billing description>"}

Narrative:
%s`

func (s *estimateService) EstimateFromNarrative(ctx context.Context, narrative string) (*Estimate, error) {
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return nil, &ValidationError{Field: "narrative", Message: "must not be empty"}
	}

	requestBody := map[string]interface{}{
		"model":      s.model,
		"max_tokens": 512,
		"messages": []map[string]string{
			{"role": "user", "content": fmt.Sprintf(estimatePrompt, narrative)},
		},
	}
	bodyJSON, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+anthropicMessagesEndpoint, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create estimate request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call model: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read estimate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return nil, fmt.Errorf("estimate request failed: %s", errorResp.Error.Message)
		}
		return nil, fmt.Errorf("estimate request failed: HTTP %d", resp.StatusCode)
	}

	var msgResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return nil, fmt.Errorf("failed to decode estimate response: %w", err)
	}

	var text string
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	est, ok := parseEstimate(text)
	if !ok {
		s.logger.Warn().Str("reply", truncate(text, 200)).Msg("unparseable estimate reply")
		return nil, fmt.Errorf("estimate reply could not be parsed")
	}
	return est, nil
}

// parseEstimate extracts the first balanced JSON object from the model's
// reply, tolerating markdown code fences and surrounding prose.
func parseEstimate(text string) (*Estimate, bool) {
	raw, ok := extractJSONObject(stripFences(text))
	if !ok {
		return nil, false
	}

	var parsed struct {
		BillableHours *float64 `json:"billable_hours"`
		Description   *string  `json:"description"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	if parsed.BillableHours == nil || parsed.Description == nil {
		return nil, false
	}
	if *parsed.BillableHours < 0.1 || *parsed.BillableHours > 24 {
		return nil, false
	}
	return &Estimate{
		BillableHours: *parsed.BillableHours,
		Description:   *parsed.Description,
	}, true
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// extractJSONObject returns the first balanced {...} span, tracking string
// literals so braces inside values do not break the balance count.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
