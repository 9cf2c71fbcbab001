package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"snaptrade/config"
	"snaptrade/internal/dto"
	"snaptrade/internal/repository"
	"snaptrade/pkg/decoder"
	"snaptrade/pkg/logger"
	"time"
)

var (
	// ErrNoJSON means the model reply had no parseable JSON object in it.
	ErrNoJSON = errors.New("model reply does not contain valid JSON")
	// ErrContractViolation means the reply parsed but does not match the signal contract.
	ErrContractViolation = errors.New("model reply does not match the expected schema")
)

var jsonObjectRegex = regexp.MustCompile(`(?s)\{.*\}`)

type AnalyzerService interface {
	// Analyze validates the request, decodes the chart and asks the model for a signal.
	Analyze(ctx context.Context, req dto.AnalyzeRequest) (*dto.AnalysisResult, error)
}

type analyzerService struct {
	cfg        *config.Config
	log        *logger.Logger
	validator  *Validator
	decoder    *decoder.ImageDecoder
	visionRepo repository.VisionRepository
}

func NewAnalyzerService(cfg *config.Config, log *logger.Logger, validator *Validator, visionRepo repository.VisionRepository) AnalyzerService {
	return &analyzerService{
		cfg:        cfg,
		log:        log,
		validator:  validator,
		decoder:    decoder.NewImageDecoder(cfg.Image.MaxBytes),
		visionRepo: visionRepo,
	}
}

func (s *analyzerService) Analyze(ctx context.Context, req dto.AnalyzeRequest) (*dto.AnalysisResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	image, err := s.decoder.Decode(req.ImageBase64)
	if err != nil {
		return nil, err
	}
	if image.DeclaredMimeType != "" && image.DeclaredMimeType != image.MimeType {
		s.log.DebugContext(ctx, "declared mime type differs from sniffed one",
			logger.StringField("declared", image.DeclaredMimeType),
			logger.StringField("detected", image.MimeType),
		)
	}

	symbol := req.SymbolOrDefault()
	timeframe := req.TimeframeOrDefault()
	prompt := repository.BuildPrompt(symbol, timeframe)

	modelCtx, cancel := context.WithTimeout(ctx, s.cfg.Model.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.visionRepo.Invoke(modelCtx, prompt, image)
	if err != nil {
		if errors.Is(modelCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, repository.ErrUpstreamTimeout) {
			err = fmt.Errorf("%w: %v", repository.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("failed to invoke %s vision model: %w", s.visionRepo.Name(), err)
	}

	s.log.InfoContext(ctx, "vision model answered",
		logger.StringField("provider", s.visionRepo.Name()),
		logger.StringField("symbol", symbol),
		logger.StringField("mime_type", image.MimeType),
		logger.IntField("image_bytes", len(image.Bytes)),
		logger.DurationField("latency", time.Since(start)),
	)

	return s.parseReply(ctx, raw)
}

// parseReply extracts the JSON object from the model text and enforces the contract.
func (s *analyzerService) parseReply(ctx context.Context, raw string) (*dto.AnalysisResult, error) {
	payload, err := ExtractJSON(raw)
	if err != nil {
		s.log.ErrorContext(ctx, "model reply without JSON", logger.StringField("raw_reply", raw))
		return nil, err
	}

	result, err := decodeContract(payload)
	if err == nil {
		err = s.validator.Struct(result)
	}
	if err != nil {
		s.log.WarnContext(ctx, "model reply outside expected schema",
			logger.StringField("raw_reply", raw),
			logger.ErrorField(err),
			logger.AlertField(),
		)
		return nil, fmt.Errorf("%w: %v", ErrContractViolation, err)
	}

	return result, nil
}

// decodeContract reads the three contract fields by their exact keys. encoding/json
// matches struct tags case-insensitively, so the object is walked as a map instead.
func decodeContract(payload []byte) (*dto.AnalysisResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}

	values := make(map[string]string, 3)
	for _, key := range []string{dto.FieldSinal, dto.FieldConfianca, dto.FieldExplicacao} {
		raw, ok := fields[key]
		if !ok {
			return nil, fmt.Errorf("missing field %q", key)
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		values[key] = value
	}

	return &dto.AnalysisResult{
		Sinal:      values[dto.FieldSinal],
		Confianca:  values[dto.FieldConfianca],
		Explicacao: values[dto.FieldExplicacao],
	}, nil
}

// ExtractJSON returns the span from the first '{' to the last '}' of text if it is valid
// JSON. Models sometimes wrap the object in prose or code fences.
func ExtractJSON(text string) ([]byte, error) {
	match := jsonObjectRegex.FindString(text)
	if match == "" {
		return nil, ErrNoJSON
	}
	if !json.Valid([]byte(match)) {
		return nil, ErrNoJSON
	}
	return []byte(match), nil
}
