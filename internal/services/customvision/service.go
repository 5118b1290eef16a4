package customvision

import (
	"context"
	"net/url"
	"strconv"

	"github.com/ai-demos/gateway/internal/httpbase"
)

const (
	DefaultBaseURL = "https://app-customvisionback-dev-we-004.azurewebsites.net"

	detectImagePath      = "CustomVision/DetectImage"
	invoiceProcessorPath = "CustomVision/AutoInvoiceProcessor"
)

type Service struct {
	client *httpbase.Client
}

func NewService(client *httpbase.Client) *Service {
	return &Service{client: client}
}

// GetPrediction runs object detection on the uploaded image.
func (s *Service) GetPrediction(ctx context.Context, upperProbabilityThreshold, lowerProbabilityThreshold float64, form *httpbase.Form) (*httpbase.Response, error) {
	return s.client.PostForm(ctx, detectImagePath, form, thresholdParams(upperProbabilityThreshold, lowerProbabilityThreshold))
}

// GetInvoice runs detection and prices the detected items into a cart summary.
func (s *Service) GetInvoice(ctx context.Context, upperProbabilityThreshold, lowerProbabilityThreshold float64, form *httpbase.Form) (*httpbase.Response, error) {
	return s.client.PostForm(ctx, invoiceProcessorPath, form, thresholdParams(upperProbabilityThreshold, lowerProbabilityThreshold))
}

func thresholdParams(upper, lower float64) url.Values {
	params := url.Values{}
	params.Set("upperProbabilityThreshold", strconv.FormatFloat(upper, 'f', -1, 64))
	params.Set("lowerProbabilityThreshold", strconv.FormatFloat(lower, 'f', -1, 64))
	return params
}
