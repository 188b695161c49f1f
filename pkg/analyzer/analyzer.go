// Package analyzer audits prediction market odds with Google's Gemini
// generateContent API and turns the model output into storable predictions.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/predictionlabs/prediction-oracle/pkg/config"
	"github.com/predictionlabs/prediction-oracle/pkg/market"
)

// ErrNoAPIKey is returned when analysis is requested without a configured key.
var ErrNoAPIKey = errors.New("gemini api key is not configured")

const maxErrBodyBytes = 4096

// Analyzer is a Gemini-backed market auditor.
type Analyzer struct {
	cfg        config.AnalyzerConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds an Analyzer from config. A nil logger is replaced with a no-op.
func New(cfg config.AnalyzerConfig, logger *zap.Logger) *Analyzer {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

// Enabled reports whether the analyzer has an API key to work with.
func (a *Analyzer) Enabled() bool {
	return a.cfg.APIKey != ""
}

// AnalyzeEvent audits a selected event and returns the parsed verdict. Calls
// are retried on transport errors and on malformed model output.
func (a *Analyzer) AnalyzeEvent(ctx context.Context, selection *market.Selection) (*Result, error) {
	if !a.Enabled() {
		return nil, ErrNoAPIKey
	}

	prompt := BuildPrompt(selection, time.Now())

	var result *Result
	attempt := 0
	operation := func() error {
		attempt++
		text, err := a.generateContent(ctx, prompt)
		if err != nil {
			a.logger.Warn("gemini call failed",
				zap.Int("attempt", attempt),
				zap.String("event", selection.Title),
				zap.Error(err))
			return err
		}
		parsed, err := ParseResult(text)
		if err != nil {
			a.logger.Warn("gemini returned unparseable output",
				zap.Int("attempt", attempt),
				zap.String("event", selection.Title),
				zap.Error(err))
			return err
		}
		result = parsed
		return nil
	}

	// MaxRetries counts total attempts; the backoff policy counts retries
	// after the first one.
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(a.cfg.RetryDelay), uint64(a.cfg.MaxRetries-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("analysis failed after %d attempts: %w", attempt, err)
	}
	return result, nil
}

type generateContentRequest struct {
	Contents         []requestContent `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type requestContent struct {
	Parts []contentPart `json:"parts"`
}

type contentPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []contentPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Default safety thresholds block betting-adjacent prompts.
func permissiveSafetySettings() []safetySetting {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}
	settings := make([]safetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, safetySetting{Category: category, Threshold: "BLOCK_NONE"})
	}
	return settings
}

func (a *Analyzer) generateContent(ctx context.Context, prompt string) (string, error) {
	payload := generateContentRequest{
		Contents: []requestContent{{Parts: []contentPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      a.cfg.Temperature,
			ResponseMimeType: "application/json",
		},
		SafetySettings: permissiveSafetySettings(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimSuffix(a.cfg.BaseURL, "/"), a.cfg.Model, url.QueryEscape(a.cfg.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyBytes))
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var decoded generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(decoded.Candidates) == 0 {
		return "", errors.New("gemini response contains no candidates")
	}

	var text strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return "", errors.New("gemini candidate contains no text")
	}
	return text.String(), nil
}

// ParseResult decodes model output, falling back to RepairJSON when the raw
// text is not valid JSON.
func ParseResult(text string) (*Result, error) {
	var result Result
	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return &result, nil
	}
	repaired := RepairJSON(text)
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis output: %w", err)
	}
	return &result, nil
}
