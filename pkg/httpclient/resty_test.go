package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoBody struct {
	Method string `json:"method"`
	Auth   string `json:"auth"`
	Body   string `json:"body"`
}

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"upstream"}`))
			return
		}
		var payload map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		raw, _ := json.Marshal(payload)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(echoBody{
			Method: r.Method,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(raw),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRestyClient_Post(t *testing.T) {
	srv := newEchoServer(t)
	client := New(srv.URL, time.Second, "sk-test")

	var got echoBody
	resp, err := client.Post(context.Background(), "/echo", map[string]string{"a": "b"}, nil, &got)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "Bearer sk-test", got.Auth)
	assert.JSONEq(t, `{"a":"b"}`, got.Body)
}

func TestRestyClient_ErrorStatus(t *testing.T) {
	srv := newEchoServer(t)
	client := New(srv.URL, time.Second, "")

	var got echoBody
	resp, err := client.Post(context.Background(), "/echo", map[string]string{}, nil, &got)
	require.NoError(t, err)
	assert.Empty(t, got.Auth)

	resp, err = client.Post(context.Background(), "/fail", map[string]string{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.JSONEq(t, `{"error":"upstream"}`, string(resp.Body))
}
