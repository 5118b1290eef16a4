package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ai-demos/gateway/internal/httpbase"
	"github.com/ai-demos/gateway/internal/storage/models"
)

func ptr(s string) *string { return &s }

func TestSendChatRequest_PostsQueryPromptAndMessages(t *testing.T) {
	var (
		gotPath string
		gotBody ChatRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"answer":"ok"}`))
	}))
	defer server.Close()

	client := httpbase.NewClient(server.URL, httpbase.Options{Name: "rag", Logger: zap.NewNop()})
	service := NewService(client, nil)

	history := []models.Message{{Role: models.RoleUser, Content: "hola"}}
	resp, err := service.SendChatRequest(context.Background(), "¿Qué consumo tiene?", ptr("Toyota"), ptr("Corolla"), history)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "/chat", gotPath)
	assert.Equal(t, "¿Qué consumo tiene?", gotBody.Query)
	assert.Contains(t, gotBody.Prompt, "Toyota")
	assert.Contains(t, gotBody.Prompt, "Corolla")
	assert.Equal(t, history, gotBody.Messages)
}

func TestBuildRequest_PromptSelection(t *testing.T) {
	service := NewService(httpbase.NewClient("http://unused", httpbase.Options{Logger: zap.NewNop()}), nil)

	req, err := service.BuildRequest("q", nil, ptr("Corolla"), nil)
	require.NoError(t, err)
	assert.NotContains(t, req.Prompt, "Corolla")
	assert.NotNil(t, req.Messages)

	req, err = service.BuildRequest("q", ptr("Toyota"), nil, nil)
	require.NoError(t, err)
	assert.NotContains(t, req.Prompt, "Toyota")

	req, err = service.BuildRequest("q", ptr(""), ptr(""), nil)
	require.NoError(t, err)
	assert.NotContains(t, req.Prompt, "QR pegado al parabrisas del")

	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"messages":[]`)
}

func TestSendChatRequest_PropagatesRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := httpbase.NewClient(server.URL, httpbase.Options{Name: "rag", Logger: zap.NewNop()})
	service := NewService(client, nil)

	_, err := service.SendChatRequest(context.Background(), "q", nil, nil, nil)
	require.ErrorIs(t, err, httpbase.ErrServer)
}
