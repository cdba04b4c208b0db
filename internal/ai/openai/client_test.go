package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/driverops/internal/ai"
	"github.com/yegors/driverops/pkg/logger"
)

func TestChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		assert.Len(t, body.Messages, 2)

		w.Write([]byte(`{"choices":[{"message":{"content":"  Head to T3.  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", logger.NewNop(), srv.URL+"/")
	out, err := c.ChatCompletion(context.Background(), []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: "be brief"},
		{Role: ai.RoleUser, Content: "where now?"},
	}, ai.ChatConfig{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "Head to T3.", out)
}

func TestChatCompletionErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer bad" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient("bad", logger.NewNop(), srv.URL).ChatCompletion(context.Background(), nil, ai.ChatConfig{})
	assert.ErrorContains(t, err, "401")

	_, err = NewClient("ok", logger.NewNop(), srv.URL).ChatCompletion(context.Background(), nil, ai.ChatConfig{})
	assert.ErrorContains(t, err, "no choices")
}

func TestChatCompletionErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", logger.NewNop(), srv.URL).ChatCompletion(context.Background(), nil, ai.ChatConfig{})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "Rate limit reached", statusErr.Message)
}
