package rag

import (
	"context"

	"github.com/ai-demos/gateway/internal/httpbase"
	"github.com/ai-demos/gateway/internal/prompts"
	"github.com/ai-demos/gateway/internal/storage/models"
)

const (
	DefaultBaseURL = "https://aspback-rag-dev-fc-poc03.azurewebsites.net"

	chatPath = "chat"
)

// ChatRequest is the body posted to the chat endpoint.
type ChatRequest struct {
	Query    string           `json:"query"`
	Prompt   string           `json:"prompt"`
	Messages []models.Message `json:"messages"`
}

type Service struct {
	client  *httpbase.Client
	prompts *prompts.Builder
}

func NewService(client *httpbase.Client, builder *prompts.Builder) *Service {
	if builder == nil {
		builder = prompts.Default()
	}
	return &Service{client: client, prompts: builder}
}

// SendChatRequest posts the query, the system prompt and the conversation so
// far. A nil or empty brand or model selects the generic prompt.
func (s *Service) SendChatRequest(ctx context.Context, query string, brand, model *string, messages []models.Message) (*httpbase.Response, error) {
	req, err := s.BuildRequest(query, brand, model, messages)
	if err != nil {
		return nil, err
	}
	return s.client.PostJSON(ctx, chatPath, req)
}

func (s *Service) BuildRequest(query string, brand, model *string, messages []models.Message) (ChatRequest, error) {
	prompt, err := s.prompts.Build(deref(brand), deref(model))
	if err != nil {
		return ChatRequest{}, err
	}

	if messages == nil {
		messages = []models.Message{}
	}

	return ChatRequest{
		Query:    query,
		Prompt:   prompt,
		Messages: messages,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
