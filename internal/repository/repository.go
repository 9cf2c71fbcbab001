package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"snaptrade/config"
	"snaptrade/internal/dto"
	"snaptrade/pkg/decoder"
	"snaptrade/pkg/logger"
)

var (
	ErrUpstreamTimeout = errors.New("upstream model timed out")
	ErrUpstreamStatus  = errors.New("upstream model returned an error status")
	ErrEmptyReply      = errors.New("upstream model returned no content")
)

// VisionRepository is the boundary to the hosted multimodal model. It returns the
// model's raw text; interpreting it is the caller's job.
type VisionRepository interface {
	Invoke(ctx context.Context, prompt dto.Prompt, image *decoder.DecodedImage) (string, error)
	Name() string
}

type Repository struct {
	VisionRepo VisionRepository
}

func NewRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Repository, error) {
	visionRepo, err := NewVisionRepository(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &Repository{
		VisionRepo: visionRepo,
	}, nil
}

// NewVisionRepository picks the provider named in the config.
func NewVisionRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (VisionRepository, error) {
	switch cfg.Model.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIVisionRepository(cfg, log), nil
	case config.ProviderGemini:
		return NewGeminiVisionRepository(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

// classifyUpstreamError folds deadline and network timeouts into ErrUpstreamTimeout.
func classifyUpstreamError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	return err
}
