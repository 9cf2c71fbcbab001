package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"snaptrade/config"
	"snaptrade/internal/dto"
	"snaptrade/pkg/decoder"
	"snaptrade/pkg/logger"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImage = &decoder.DecodedImage{
	Bytes:    []byte("\x89PNG\r\n\x1a\nrest-of-image"),
	MimeType: decoder.MimePNG,
}

func testConfig(provider, baseURL string) *config.Config {
	return &config.Config{
		Model: config.Model{
			Provider:        provider,
			APIKey:          "sk-test",
			Name:            "vision-model",
			BaseURL:         baseURL,
			Timeout:         2 * time.Second,
			MaxOutputTokens: 300,
		},
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("", "")
	assert.Contains(t, p.User, "símbolo=desconhecido")
	assert.Contains(t, p.User, "timeframe=1m")
	assert.Contains(t, p.System, `"sinal":"COMPRAR|VENDER|AGUARDAR"`)

	p = BuildPrompt("WINFUT", "1m")
	assert.Contains(t, p.User, "símbolo=WINFUT")
}

func TestOpenAIVisionRepository_Invoke(t *testing.T) {
	var got dto.OpenAIChatRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"sinal\":\"AGUARDAR\"}"}}]}`))
	}))
	defer srv.Close()

	repo := NewOpenAIVisionRepository(testConfig(config.ProviderOpenAI, srv.URL+"/v1"), logger.NewNop())
	text, err := repo.Invoke(context.Background(), BuildPrompt("BTC", "1m"), testImage)
	require.NoError(t, err)

	assert.Equal(t, `{"sinal":"AGUARDAR"}`, text)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "vision-model", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)

	parts, ok := got.Messages[1].Content.([]interface{})
	require.True(t, ok)
	require.Len(t, parts, 2)
	imagePart := parts[1].(map[string]interface{})
	assert.Equal(t, "image_url", imagePart["type"])
	url := imagePart["image_url"].(map[string]interface{})["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestOpenAIVisionRepository_Errors(t *testing.T) {
	t.Run("non 200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
		}))
		defer srv.Close()

		repo := NewOpenAIVisionRepository(testConfig(config.ProviderOpenAI, srv.URL), logger.NewNop())
		_, err := repo.Invoke(context.Background(), BuildPrompt("", ""), testImage)
		assert.ErrorIs(t, err, ErrUpstreamStatus)
	})

	t.Run("empty choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		repo := NewOpenAIVisionRepository(testConfig(config.ProviderOpenAI, srv.URL), logger.NewNop())
		_, err := repo.Invoke(context.Background(), BuildPrompt("", ""), testImage)
		assert.ErrorIs(t, err, ErrEmptyReply)
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		repo := NewOpenAIVisionRepository(testConfig(config.ProviderOpenAI, srv.URL), logger.NewNop())
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := repo.Invoke(ctx, BuildPrompt("", ""), testImage)
		assert.ErrorIs(t, err, ErrUpstreamTimeout)
	})
}

func TestGeminiVisionRepository_Invoke(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "vision-model:generateContent")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"sinal\":\"VENDER\"}"}]}}]}`))
	}))
	defer srv.Close()

	repo, err := NewGeminiVisionRepository(context.Background(), testConfig(config.ProviderGemini, srv.URL), logger.NewNop())
	require.NoError(t, err)

	text, err := repo.Invoke(context.Background(), BuildPrompt("ETH", "1m"), testImage)
	require.NoError(t, err)
	assert.Equal(t, `{"sinal":"VENDER"}`, text)
	assert.Contains(t, body, "systemInstruction")
	assert.Contains(t, body, "contents")
}

func TestNewVisionRepository_UnknownProvider(t *testing.T) {
	_, err := NewVisionRepository(context.Background(), testConfig("claude", ""), logger.NewNop())
	assert.Error(t, err)
}
