package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/fleet-console/fleet-console/internal/config"
	"github.com/fleet-console/fleet-console/internal/models"
	"github.com/fleet-console/fleet-console/internal/validation"
)

// ErrAnalysisFailure wraps every failed or unusable model call.
var ErrAnalysisFailure = errors.New("analysis failure")

const generatePath = "/v1beta/models/{model}:generateContent"

// Client calls the generateContent endpoint of a Gemini-compatible API. It
// never retries.
type Client struct {
	http     *resty.Client
	model    string
	language string
	hasKey   bool
}

// NewClient creates a client from the AI section of the config.
func NewClient(cfg config.AIConfig) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey)

	return &Client{
		http:     http,
		model:    cfg.Model,
		language: cfg.Language,
		hasKey:   cfg.APIKey != "",
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string      `json:"responseMimeType"`
	ResponseSchema   interface{} `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// generate sends one prompt and returns the concatenated text of the first
// candidate.
func (c *Client) generate(ctx context.Context, prompt string, schema interface{}) (string, error) {
	if !c.hasKey {
		return "", fmt.Errorf("%w: api key not configured", ErrAnalysisFailure)
	}

	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	}

	var result generateResponse
	var failure apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("model", c.model).
		SetBody(req).
		SetResult(&result).
		SetError(&failure).
		Post(generatePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnalysisFailure, err)
	}
	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		log.Error().
			Int("status_code", resp.StatusCode()).
			Str("model", c.model).
			Str("message", msg).
			Msg("Model API returned error")
		return "", fmt.Errorf("%w: %s", ErrAnalysisFailure, msg)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrAnalysisFailure)
	}
	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}

// decodeObject parses text as a single JSON object.
func decodeObject(text string, v interface{}) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: empty response", ErrAnalysisFailure)
	}
	if !strings.HasPrefix(text, "{") {
		return fmt.Errorf("%w: response is not a JSON object", ErrAnalysisFailure)
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("%w: %v", ErrAnalysisFailure, err)
	}
	return nil
}

// Analyze asks the model for a health report of the whole fleet. The result
// is sanitized before it is returned.
func (c *Client) Analyze(ctx context.Context, devices []models.Device) (*Report, error) {
	fleet, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode devices: %w", err)
	}

	text, err := c.generate(ctx, analysisPrompt(c.language, string(fleet)), reportSchema(c.language))
	if err != nil {
		return nil, err
	}

	var raw rawReport
	if err := decodeObject(text, &raw); err != nil {
		log.Warn().Err(err).Int("length", len(text)).Msg("Unusable analysis response")
		return nil, err
	}

	report := raw.report()
	report.Sanitize()

	log.Info().
		Int("devices", len(devices)).
		Float64("health_score", report.HealthScore).
		Int("recommendations", len(report.Recommendations)).
		Msg("Fleet analysis completed")
	return report, nil
}

// SmartConfiguration asks the model for configuration parameters that reach
// goal on a device of the given type.
func (c *Client) SmartConfiguration(ctx context.Context, deviceType, goal string) (map[string]interface{}, error) {
	deviceType = strings.TrimSpace(deviceType)
	goal = strings.TrimSpace(goal)
	if deviceType == "" {
		return nil, validation.Errorf("deviceType", "is required")
	}
	if goal == "" {
		return nil, validation.Errorf("goal", "is required")
	}

	text, err := c.generate(ctx, configurationPrompt(c.language, deviceType, goal), nil)
	if err != nil {
		return nil, err
	}

	params := make(map[string]interface{})
	if err := decodeObject(text, &params); err != nil {
		return nil, err
	}
	return params, nil
}
