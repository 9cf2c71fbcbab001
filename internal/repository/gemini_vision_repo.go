package repository

import (
	"context"
	"fmt"
	"snaptrade/config"
	"snaptrade/internal/dto"
	"snaptrade/pkg/decoder"
	"snaptrade/pkg/logger"
	"strings"

	"google.golang.org/genai"
)

// geminiVisionRepository sends charts to Gemini through the GenAI SDK.
type geminiVisionRepository struct {
	cfg         *config.Config
	logger      *logger.Logger
	genAiClient *genai.Client
}

// NewGeminiVisionRepository creates a new instance of geminiVisionRepository.
func NewGeminiVisionRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (VisionRepository, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.Model.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Model.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Model.BaseURL}
	}

	genAiClient, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiVisionRepository{
		cfg:         cfg,
		logger:      log,
		genAiClient: genAiClient,
	}, nil
}

func (r *geminiVisionRepository) Name() string {
	return config.ProviderGemini
}

func (r *geminiVisionRepository) Invoke(ctx context.Context, prompt dto.Prompt, image *decoder.DecodedImage) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt.User),
			genai.NewPartFromBytes(image.Bytes, image.MimeType),
		}, genai.RoleUser),
	}

	generateCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		MaxOutputTokens:   int32(r.cfg.Model.MaxOutputTokens),
		ResponseMIMEType:  "application/json",
	}

	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Model.Name, contents, generateCfg)
	if err != nil {
		return "", classifyUpstreamError(ctx, fmt.Errorf("failed to send request to gemini: %w", err))
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		r.logger.WarnContext(ctx, "gemini returned no text", logger.IntField("candidates", len(resp.Candidates)))
		return "", ErrEmptyReply
	}
	return text, nil
}
