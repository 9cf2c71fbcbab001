package repository

import (
	"context"
	"fmt"
	"net/http"
	"snaptrade/config"
	"snaptrade/internal/dto"
	"snaptrade/pkg/decoder"
	"snaptrade/pkg/httpclient"
	"snaptrade/pkg/logger"
	"strings"
)

const openAIChatCompletionsPath = "/chat/completions"

// openAIVisionRepository talks to an OpenAI compatible chat completions endpoint.
type openAIVisionRepository struct {
	httpClient httpclient.HTTPClient
	cfg        *config.Config
	logger     *logger.Logger
}

func NewOpenAIVisionRepository(cfg *config.Config, log *logger.Logger) VisionRepository {
	return &openAIVisionRepository{
		httpClient: httpclient.New(cfg.Model.BaseURL, cfg.Model.Timeout, cfg.Model.APIKey),
		cfg:        cfg,
		logger:     log,
	}
}

func (r *openAIVisionRepository) Name() string {
	return config.ProviderOpenAI
}

func (r *openAIVisionRepository) Invoke(ctx context.Context, prompt dto.Prompt, image *decoder.DecodedImage) (string, error) {
	payload := dto.OpenAIChatRequest{
		Model:       r.cfg.Model.Name,
		Temperature: 0,
		MaxTokens:   r.cfg.Model.MaxOutputTokens,
		Messages: []dto.OpenAIChatMessage{
			{Role: "system", Content: prompt.System},
			{
				Role: "user",
				Content: []dto.OpenAIContentPart{
					{Type: "text", Text: prompt.User},
					{Type: "image_url", ImageURL: &dto.OpenAIImageURL{URL: image.DataURL()}},
				},
			},
		},
	}

	var chatResp dto.OpenAIChatResponse
	resp, err := r.httpClient.Post(ctx, openAIChatCompletionsPath, payload, nil, &chatResp)
	if err != nil {
		return "", classifyUpstreamError(ctx, fmt.Errorf("failed to send request to openai: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "openai returned non-200 status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", truncate(string(resp.Body), 512)),
		)
		return "", fmt.Errorf("%w: status %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var parts []string
	for _, choice := range chatResp.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", ErrEmptyReply
	}
	return strings.Join(parts, "\n"), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
