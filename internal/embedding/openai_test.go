package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbeddingServer(t *testing.T, dim int, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests++
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req embeddingRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Data []item `json:"data"`
		}{}
		// Reverse order to check index handling.
		for i := len(req.Input) - 1; i >= 0; i-- {
			assert.NotEmpty(t, req.Input[i])
			vec := make([]float32, dim)
			vec[0] = float32(i + 1)
			resp.Data = append(resp.Data, item{Embedding: vec, Index: i})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	var requests int
	srv := newEmbeddingServer(t, 3, &requests)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIOptions{
		BaseURL:    srv.URL + "/v1",
		APIKey:     "secret",
		Model:      "test-model",
		Dimensions: 3,
		BatchSize:  2,
	})
	require.NoError(t, err)
	defer e.Close()

	out, err := e.EmbedBatch(context.Background(), []string{"a", "", "c"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, float32(1), out[0][0])
	assert.Equal(t, float32(2), out[1][0])
	assert.Equal(t, float32(1), out[2][0], "third text is first of the second batch")
	assert.Equal(t, 2, requests)
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	var requests int
	srv := newEmbeddingServer(t, 5, &requests)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIOptions{BaseURL: srv.URL + "/v1", APIKey: "secret", Model: "m", Dimensions: 3})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "x")
	assert.Error(t, err)
}

func TestOpenAIEmbedder_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIOptions{BaseURL: srv.URL, Model: "m", Dimensions: 3})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNewOpenAIEmbedder_Validation(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIOptions{Dimensions: 3})
	assert.Error(t, err, "model required")
	_, err = NewOpenAIEmbedder(OpenAIOptions{Model: "m"})
	assert.Error(t, err, "dimensions required")
}
