package service

import (
	"context"
	"encoding/base64"
	"errors"
	"snaptrade/config"
	"snaptrade/internal/dto"
	"snaptrade/internal/repository"
	"snaptrade/pkg/decoder"
	"snaptrade/pkg/logger"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngChart = base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR-chart-bytes"))

type fakeVisionRepo struct {
	reply  string
	err    error
	delay  time.Duration
	calls  int
	prompt dto.Prompt
	image  *decoder.DecodedImage
}

func (f *fakeVisionRepo) Invoke(ctx context.Context, prompt dto.Prompt, image *decoder.DecodedImage) (string, error) {
	f.calls++
	f.prompt = prompt
	f.image = image
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeVisionRepo) Name() string {
	return "fake"
}

func newTestAnalyzer(t *testing.T, repo repository.VisionRepository) AnalyzerService {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	cfg := &config.Config{
		Image: config.Image{MaxBytes: 1024},
		Model: config.Model{Timeout: time.Second},
	}
	return NewAnalyzerService(cfg, logger.NewNop(), v, repo)
}

func strPtr(s string) *string {
	return &s
}

func TestAnalyzerService_Analyze_Success(t *testing.T) {
	repo := &fakeVisionRepo{reply: `{"sinal":"COMPRAR","confianca":"alta","explicacao":"engulfing de alta confirmado"}`}
	svc := newTestAnalyzer(t, repo)

	got, err := svc.Analyze(context.Background(), dto.AnalyzeRequest{
		ImageBase64: "data:image/png;base64," + pngChart,
		Context:     &dto.AnalyzeContext{Symbol: "WINFUT"},
	})
	require.NoError(t, err)
	assert.Equal(t, &dto.AnalysisResult{Sinal: "COMPRAR", Confianca: "alta", Explicacao: "engulfing de alta confirmado"}, got)
	assert.Equal(t, 1, repo.calls)
	assert.Contains(t, repo.prompt.User, "símbolo=WINFUT")
	assert.Contains(t, repo.prompt.User, "timeframe=1m")
	assert.Equal(t, decoder.MimePNG, repo.image.MimeType)
}

func TestAnalyzerService_Analyze_ReplyHandling(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    *dto.AnalysisResult
		wantErr error
	}{
		{
			name:  "json wrapped in prose and code fences",
			reply: "Claro! Segue:\n```json\n{\"sinal\":\"VENDER\",\"confianca\":\"media\",\"explicacao\":\"rompimento de suporte\"}\n```",
			want:  &dto.AnalysisResult{Sinal: "VENDER", Confianca: "media", Explicacao: "rompimento de suporte"},
		},
		{
			name:  "extra fields are dropped",
			reply: `{"sinal":"AGUARDAR","confianca":"baixa","explicacao":"mercado lateral sem padrão","score":99}`,
			want:  &dto.AnalysisResult{Sinal: "AGUARDAR", Confianca: "baixa", Explicacao: "mercado lateral sem padrão"},
		},
		{
			name:    "signal outside the enum",
			reply:   `{"sinal":"HOLD","confianca":"alta","explicacao":"engulfing de alta confirmado"}`,
			wantErr: ErrContractViolation,
		},
		{
			name:    "confidence outside the enum",
			reply:   `{"sinal":"COMPRAR","confianca":"high","explicacao":"engulfing de alta confirmado"}`,
			wantErr: ErrContractViolation,
		},
		{
			name:    "explanation too short",
			reply:   `{"sinal":"COMPRAR","confianca":"alta","explicacao":"curto"}`,
			wantErr: ErrContractViolation,
		},
		{
			name:    "wrong field type",
			reply:   `{"sinal":1,"confianca":"alta","explicacao":"engulfing de alta confirmado"}`,
			wantErr: ErrContractViolation,
		},
		{
			name:    "keys in the wrong case",
			reply:   `{"SINAL":"COMPRAR","Confianca":"alta","EXPLICACAO":"engulfing de alta confirmado"}`,
			wantErr: ErrContractViolation,
		},
		{
			name:    "null explanation",
			reply:   `{"sinal":"COMPRAR","confianca":"alta","explicacao":null}`,
			wantErr: ErrContractViolation,
		},
		{
			name:    "missing fields",
			reply:   `{}`,
			wantErr: ErrContractViolation,
		},
		{
			name:    "no json at all",
			reply:   "Não consigo analisar esta imagem.",
			wantErr: ErrNoJSON,
		},
		{
			name:    "broken json",
			reply:   `{"sinal":"COMPRAR",}`,
			wantErr: ErrNoJSON,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestAnalyzer(t, &fakeVisionRepo{reply: tt.reply})
			got, err := svc.Analyze(context.Background(), dto.AnalyzeRequest{ImageBase64: pngChart})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzerService_Analyze_RequestValidation(t *testing.T) {
	tests := []struct {
		name       string
		req        dto.AnalyzeRequest
		wantDetail string
	}{
		{
			name:       "missing image",
			req:        dto.AnalyzeRequest{},
			wantDetail: "imageBase64: ",
		},
		{
			name:       "unsupported timeframe",
			req:        dto.AnalyzeRequest{ImageBase64: pngChart, Context: &dto.AnalyzeContext{Timeframe: strPtr("5m")}},
			wantDetail: "context.timeframe: ",
		},
		{
			name:       "explicit empty timeframe",
			req:        dto.AnalyzeRequest{ImageBase64: pngChart, Context: &dto.AnalyzeContext{Timeframe: strPtr("")}},
			wantDetail: "context.timeframe: ",
		},
		{
			name:       "symbol too long",
			req:        dto.AnalyzeRequest{ImageBase64: pngChart, Context: &dto.AnalyzeContext{Symbol: strings.Repeat("X", 40)}},
			wantDetail: "context.symbol: ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeVisionRepo{}
			svc := newTestAnalyzer(t, repo)
			_, err := svc.Analyze(context.Background(), tt.req)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
			require.Len(t, vErr.Details, 1)
			assert.True(t, strings.HasPrefix(vErr.Details[0], tt.wantDetail), vErr.Details[0])
			assert.Zero(t, repo.calls)
		})
	}
}

func TestAnalyzerService_Analyze_ImageErrors(t *testing.T) {
	gif := base64.StdEncoding.EncodeToString([]byte("GIF89a\x01\x00\x01\x00\x00\x00\x00"))
	big := base64.StdEncoding.EncodeToString(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 2048)...))

	repo := &fakeVisionRepo{}
	svc := newTestAnalyzer(t, repo)

	_, err := svc.Analyze(context.Background(), dto.AnalyzeRequest{ImageBase64: "data:image/png;base64," + gif})
	assert.ErrorIs(t, err, decoder.ErrUnsupportedImage)

	_, err = svc.Analyze(context.Background(), dto.AnalyzeRequest{ImageBase64: big})
	assert.ErrorIs(t, err, decoder.ErrImageTooLarge)

	assert.Zero(t, repo.calls)
}

func TestAnalyzerService_Analyze_UpstreamErrors(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		v, err := NewValidator()
		require.NoError(t, err)
		cfg := &config.Config{
			Image: config.Image{MaxBytes: 1024},
			Model: config.Model{Timeout: 20 * time.Millisecond},
		}
		svc := NewAnalyzerService(cfg, logger.NewNop(), v, &fakeVisionRepo{delay: time.Second})

		_, err = svc.Analyze(context.Background(), dto.AnalyzeRequest{ImageBase64: pngChart})
		assert.ErrorIs(t, err, repository.ErrUpstreamTimeout)
	})

	t.Run("provider failure is passed through", func(t *testing.T) {
		svc := newTestAnalyzer(t, &fakeVisionRepo{err: repository.ErrUpstreamStatus})
		_, err := svc.Analyze(context.Background(), dto.AnalyzeRequest{ImageBase64: pngChart})
		assert.ErrorIs(t, err, repository.ErrUpstreamStatus)
		assert.NotErrorIs(t, err, repository.ErrUpstreamTimeout)
	})
}

func TestExtractJSON(t *testing.T) {
	got, err := ExtractJSON("texto {\"a\":{\"b\":1}} fim")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"b":1}}`, string(got))

	_, err = ExtractJSON("sem json")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestHealthService_Check(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h := &healthService{startedAt: start, now: func() time.Time { return start.Add(90 * time.Second) }}

	got := h.Check()
	assert.Equal(t, "ok", got.Status)
	assert.InDelta(t, 90.0, got.Uptime, 0.001)
}
