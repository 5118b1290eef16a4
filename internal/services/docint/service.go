package docint

import (
	"context"

	"github.com/ai-demos/gateway/internal/httpbase"
)

const (
	DefaultBaseURL = "https://app-docintback-dev-we-004.azurewebsites.net"

	documentIntelligencePath = "DocumentIntelligence/GetDocumentIntelligence"
	identityDocumentPath     = "DocumentIntelligence/GetIdentityDocument"
	contractOrInvoicePath    = "DocumentIntelligence/GetContractOrInvoiceDocument"
)

// Service calls the document intelligence backend. Responses and rejections
// from the base client are returned unchanged.
type Service struct {
	client *httpbase.Client
}

func NewService(client *httpbase.Client) *Service {
	return &Service{client: client}
}

func (s *Service) GetDocumentValidation(ctx context.Context, form *httpbase.Form) (*httpbase.Response, error) {
	return s.client.PostForm(ctx, documentIntelligencePath, form, nil)
}

func (s *Service) GetIdentityDocument(ctx context.Context, form *httpbase.Form) (*httpbase.Response, error) {
	return s.client.PostForm(ctx, identityDocumentPath, form, nil)
}

func (s *Service) GetContractOrInvoiceDocument(ctx context.Context, form *httpbase.Form) (*httpbase.Response, error) {
	return s.client.PostForm(ctx, contractOrInvoicePath, form, nil)
}
