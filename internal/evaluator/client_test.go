package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/noah-isme/sma-scoring-engine/internal/grading"
	appErrors "github.com/noah-isme/sma-scoring-engine/pkg/errors"
)

func modelReply(text string) []byte {
	payload := map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"parts": []interface{}{map[string]interface{}{"text": text}},
				},
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func essay() grading.EssayRequest {
	return grading.EssayRequest{QuestionText: "Explain osmosis", Criteria: "mentions membrane", Answer: "water crosses a membrane", MaxPoints: 10}
}

func TestClientEvaluateSuccess(t *testing.T) {
	var gotKey string
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotPrompt = gjson.GetBytes(raw, "contents.0.parts.0.text").String()
		_, _ = w.Write(modelReply(`{"score": 8, "feedback": "clear"}`))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, APIKey: "secret"}, srv.Client(), nil)
	res, err := c.Evaluate(context.Background(), essay())
	require.NoError(t, err)
	assert.Equal(t, 8.0, res.Score)
	assert.Equal(t, "clear", res.Feedback)
	assert.Equal(t, "secret", gotKey)
	assert.Contains(t, gotPrompt, "Explain osmosis")
	assert.Contains(t, gotPrompt, "between 0 and 10")
}

func TestClientEvaluateFencedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(modelReply("```json\n{\"score\": 6.5, \"feedback\": \"ok\"}\n```"))
	}))
	defer srv.Close()

	res, err := New(Config{Endpoint: srv.URL}, srv.Client(), nil).Evaluate(context.Background(), essay())
	require.NoError(t, err)
	assert.Equal(t, 6.5, res.Score)
}

func TestClientEvaluateFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"out of range": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(modelReply(`{"score": 12, "feedback": "too generous"}`))
		},
		"malformed": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(modelReply(`{"score": 5, "feedback": `))
		},
		"score as string": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(modelReply(`{"score": "5"}`))
		},
		"missing text": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"candidates": []}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := New(Config{Endpoint: srv.URL}, srv.Client(), nil).Evaluate(context.Background(), essay())
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrEvaluationFailed))
		})
	}
}

func TestClientEvaluateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, srv.Client(), nil)
	_, err := c.Evaluate(context.Background(), essay())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrEvaluationFailed))
}

func TestClientEvaluateCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(modelReply(`{"score": 1}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{Endpoint: srv.URL}, srv.Client(), nil).Evaluate(ctx, essay())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrEvaluationFailed))
}

func TestClientDisabled(t *testing.T) {
	c := New(Config{}, nil, nil)
	assert.False(t, c.Enabled())
	_, err := c.Evaluate(context.Background(), essay())
	assert.True(t, errors.Is(err, appErrors.ErrEvaluationFailed))
}

func TestParseEvaluation(t *testing.T) {
	res, err := ParseEvaluation(`Here you go: {"score": 0, "feedback": " needs work "} thanks`, 5)
	require.NoError(t, err)
	assert.Zero(t, res.Score)
	assert.Equal(t, "needs work", res.Feedback)

	_, err = ParseEvaluation("no json here", 5)
	assert.Error(t, err)

	_, err = ParseEvaluation(`{"score": -1}`, 5)
	assert.Error(t, err)
}
