package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"context"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/Davidng2000/Gai-proxy/internal/config"
	"github.com/Davidng2000/Gai-proxy/internal/retry"
)

var (
	ErrInvalidModel = errors.New("model is required")
)

// GeminiClient клиент Gemini generateContent REST API.
// Транзиентные сбои (429/5xx, сетевые) повторяются через retry.DoHTTP.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
}

func NewGeminiClient(cfg config.GeminiConfig, httpClient *http.Client, logger *slog.Logger) Client {
	return &GeminiClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		policy:     retry.DefaultPolicy(),
		logger:     logger,
	}
}

// GenerateContent отправляет prompt указанной модели и возвращает текст ответа.
// Формат ответа у API нестабилен между версиями, поэтому текст извлекается
// цепочкой проверок формы (см. extractText).
func (c *GeminiClient) GenerateContent(ctx context.Context, model string, prompt string) (string, error) {
	if model == "" {
		return "", ErrInvalidModel
	}

	buf, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(model))

	resp, body, err := retry.DoHTTP(ctx, c.policy, c.logger, func(ctx context.Context) (*http.Response, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
		if err != nil {
			return nil, nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp, nil, fmt.Errorf("read response: %w", err)
		}
		return resp, bodyBytes, nil
	})
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(body, "error.message"); msg.Str != "" {
			return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, msg.Str)
		}
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	text := extractText(body)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}

// extractText достаёт текст ответа из одной из известных форм, по порядку:
//  1. поле text верхнего уровня;
//  2. candidates[0].content.parts[*].text (части склеиваются);
//  3. candidates[0].content как строка;
//  4. тело ответа как есть.
func extractText(body []byte) string {
	if t := gjson.GetBytes(body, "text"); t.Type == gjson.String && t.Str != "" {
		return t.Str
	}

	if parts := gjson.GetBytes(body, "candidates.0.content.parts"); parts.IsArray() {
		var sb strings.Builder
		for _, part := range parts.Array() {
			if t := part.Get("text"); t.Type == gjson.String {
				sb.WriteString(t.Str)
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}

	if c := gjson.GetBytes(body, "candidates.0.content"); c.Type == gjson.String && c.Str != "" {
		return c.Str
	}

	return string(body)
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}
