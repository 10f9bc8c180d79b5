// Package gemini implements the generative backend on top of Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/callwatch/internal/config"
	"github.com/edgard/callwatch/internal/logger"
	"github.com/edgard/callwatch/internal/recommend"
)

// ErrUnparseableAnswer is returned when a boolean classification answer is neither true nor false.
var ErrUnparseableAnswer = errors.New("gemini returned an unparseable boolean answer")

// Client is a recommend.Backend backed by the Gemini API.
type Client struct {
	genaiClient      *genai.Client
	log              *slog.Logger
	classifyConfig   *genai.GenerateContentConfig
	extractConfig    *genai.GenerateContentConfig
	defaultModelName string
	maxRetries       int
	retryDelay       time.Duration
}

var _ recommend.Backend = (*Client)(nil)

var booleanSchema = &genai.Schema{
	Type:        genai.TypeBoolean,
	Description: "true if the messages should be processed, false otherwise.",
}

// candidateListSchema mirrors the candidate fields the extraction prompt asks for.
func candidateListSchema() *genai.Schema {
	nullable := true
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: "New recommendations found in the conversation. Empty when there are none.",
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				recommend.FieldRecommender:     {Type: genai.TypeString, Description: "Name of the person making the recommendation, as it appears in the conversation."},
				recommend.FieldTicker:          {Type: genai.TypeString, Nullable: &nullable, Description: "Token ticker without the leading $."},
				recommend.FieldContractAddress: {Type: genai.TypeString, Nullable: &nullable, Description: "Token contract address."},
				recommend.FieldType:            {Type: genai.TypeString, Enum: recommend.TypeValues()},
				recommend.FieldConviction:      {Type: genai.TypeString, Enum: recommend.ConvictionValues()},
				recommend.FieldAlreadyKnown:    {Type: genai.TypeBoolean, Description: "true if the recommendation is already in the known list."},
			},
			Required: []string{
				recommend.FieldRecommender,
				recommend.FieldTicker,
				recommend.FieldContractAddress,
				recommend.FieldType,
				recommend.FieldConviction,
				recommend.FieldAlreadyKnown,
			},
			PropertyOrdering: []string{
				recommend.FieldRecommender,
				recommend.FieldTicker,
				recommend.FieldContractAddress,
				recommend.FieldType,
				recommend.FieldConviction,
				recommend.FieldAlreadyKnown,
			},
		},
	}
}

// NewClient creates a Gemini client with the provided configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if log == nil {
		log = logger.Discard()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	gi, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	temperature := cfg.Temperature
	safety := []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
	}

	classifyCfg := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		SafetySettings:    safety,
		SystemInstruction: genai.NewContentFromText(ClassifierSystemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    booleanSchema,
	}
	extractCfg := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		SafetySettings:    safety,
		SystemInstruction: genai.NewContentFromText(ExtractorSystemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    candidateListSchema(),
	}

	l := log.With("component", "gemini_client")
	l.Info("Gemini client initialized successfully", "model", cfg.ModelName)
	return &Client{
		genaiClient:      gi,
		log:              l,
		classifyConfig:   classifyCfg,
		extractConfig:    extractCfg,
		defaultModelName: cfg.ModelName,
		maxRetries:       cfg.MaxRetries,
		retryDelay:       time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}, nil
}

// ClassifyBoolean sends prompt in JSON mode and interprets the answer as a boolean.
func (c *Client) ClassifyBoolean(ctx context.Context, prompt string) (bool, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, contents, c.classifyConfig)
	if err != nil {
		return false, err
	}

	text, err := c.extractTextFromResponse(ctx, "classify", resp)
	if err != nil {
		return false, err
	}

	answer, err := parseBoolean(text)
	if err != nil {
		c.log.WarnContext(ctx, "Gemini classification answer not understood", "response_preview", logger.Truncate(text, 100))
		return false, err
	}
	c.log.DebugContext(ctx, "Gemini classification finished", "answer", answer)
	return answer, nil
}

// ExtractStructured sends prompt with the candidate list schema and returns the raw JSON text.
// An empty or blocked answer is returned as an empty string.
func (c *Client) ExtractStructured(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, contents, c.extractConfig)
	if err != nil {
		return "", err
	}

	text, err := c.extractTextFromResponse(ctx, "extract", resp)
	if err != nil {
		return "", err
	}
	c.log.DebugContext(ctx, "Gemini extraction finished", "response_length", len(text))
	return text, nil
}

func parseBoolean(text string) (bool, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.Trim(s, "\"'`. \n")
	switch s {
	case "true", "yes":
		return true, nil
	case "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnparseableAnswer, logger.Truncate(text, 50))
}

func isRetriable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusInternalServerError || apiErr.Code == http.StatusServiceUnavailable || apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusInternalServerError || apiErrPtr.Code == http.StatusServiceUnavailable || apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}

func (c *Client) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var err error

	for i := 0; i <= c.maxRetries; i++ {
		var resp *genai.GenerateContentResponse
		resp, err = c.genaiClient.Models.GenerateContent(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("gemini API call aborted: %w", ctx.Err())
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.maxRetries, "error", err)

		if !isRetriable(err) {
			c.log.ErrorContext(ctx, "Gemini API call failed with non-retriable error", "error", err)
			return nil, fmt.Errorf("gemini API call failed: %w", err)
		}
		if i == c.maxRetries {
			break
		}

		c.log.InfoContext(ctx, "Retrying Gemini API call", "delay", c.retryDelay)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gemini API call aborted: %w", ctx.Err())
		case <-time.After(c.retryDelay):
		}
	}

	c.log.ErrorContext(ctx, "Gemini API call failed after max retries", "error", err)
	return nil, fmt.Errorf("gemini API call failed after %d retries: %w", c.maxRetries, err)
}

// extractTextFromResponse returns the answer text of resp. A blocked prompt or a
// candidate without content yields an empty answer, whatever the finish reason.
func (c *Client) extractTextFromResponse(ctx context.Context, op string, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%s returned no response", op)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.WarnContext(ctx, "Gemini request blocked", "operation", op, "reason", reasonMsg)
		return "", nil
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "operation", op, "finish_reason", finishReason)
		return "", nil
	}

	return resp.Text(), nil
}
