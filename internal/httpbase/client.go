package httpbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ai-demos/gateway/internal/metrics"
	"github.com/ai-demos/gateway/pkg/logger"
)

// StatusBusinessError is the non-standard status the backends use to report
// a list of business validation errors.
const StatusBusinessError = 309

const defaultMaxRecallNumber = 5

// RequestHook observes an outgoing request and returns the request to send.
// Returning an error aborts the call.
type RequestHook func(req *http.Request) (*http.Request, error)

// Call describes one settled backend call.
type Call struct {
	SessionID  string
	Backend    string
	Endpoint   string
	Method     string
	StatusCode int
	Outcome    string
	Payload    []byte
	Duration   time.Duration
}

type CallRecorder interface {
	RecordCall(ctx context.Context, call Call) error
}

type Options struct {
	// Name labels logs and metrics, e.g. "docint".
	Name               string
	Timeout            time.Duration
	MaxRecallNumber    int
	RejectAuthFailures bool
	HTTPClient         *http.Client
	Logger             *zap.Logger
	Recorder           CallRecorder
	Hooks              []RequestHook
}

type Client struct {
	name               string
	baseURL            string
	httpClient         *http.Client
	logger             *zap.Logger
	recorder           CallRecorder
	hooks              []RequestHook
	maxRecallNumber    int
	rejectAuthFailures bool
	numberOfCalls      atomic.Int64
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
	// Payload is what the audit log hashes; the body is used when nil.
	Payload []byte
}

func NewClient(baseURL string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	log := opts.Logger
	if log == nil {
		log = logger.Named("httpbase")
	}
	if opts.Name != "" {
		log = log.With(zap.String("backend", opts.Name))
	}

	maxRecall := opts.MaxRecallNumber
	if maxRecall == 0 {
		maxRecall = defaultMaxRecallNumber
	}

	c := &Client{
		name:               opts.Name,
		baseURL:            strings.TrimRight(baseURL, "/") + "/",
		httpClient:         httpClient,
		logger:             log,
		recorder:           opts.Recorder,
		maxRecallNumber:    maxRecall,
		rejectAuthFailures: opts.RejectAuthFailures,
	}
	c.hooks = append([]RequestHook{c.logRequest}, opts.Hooks...)

	return c
}

// BaseURL returns the base URL with its trailing separator.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Name() string {
	return c.name
}

// NumberOfCalls counts calls issued since the last successful response.
func (c *Client) NumberOfCalls() int64 {
	return c.numberOfCalls.Load()
}

func (c *Client) MaxRecallNumber() int {
	return c.maxRecallNumber
}

func (c *Client) PostForm(ctx context.Context, path string, form *Form, query url.Values) (*Response, error) {
	if form == nil {
		var err error
		if form, err = NewFileForm(DefaultFileField, "", nil); err != nil {
			return nil, err
		}
	}

	header := make(http.Header)
	header.Set("Content-Type", form.ContentType())
	header.Set("Accept", "*/*")

	return c.Do(ctx, Request{
		Method:  http.MethodPost,
		Path:    path,
		Query:   query,
		Header:  header,
		Body:    form.Bytes(),
		Payload: form.File(),
	})
}

func (c *Client) PostJSON(ctx context.Context, path string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json, text/plain, */*")

	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   path,
		Header: header,
		Body:   body,
	})
}

// Do issues exactly one request. Non-2xx responses are classified by
// handleError; 401 and 403 come back as a response with a nil error unless
// RejectAuthFailures is set.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	target := c.baseURL + strings.TrimPrefix(r.Path, "/")
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range r.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	for _, hook := range c.hooks {
		if req, err = hook(req); err != nil {
			return nil, err
		}
	}

	c.numberOfCalls.Add(1)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outErr := c.handleTransportError(r.Path, err)
		c.observe(ctx, r, 0, outcomeOf(outErr), time.Since(start))
		return nil, outErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		outErr := c.handleTransportError(r.Path, err)
		c.observe(ctx, r, resp.StatusCode, outcomeOf(outErr), time.Since(start))
		return nil, outErr
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.numberOfCalls.Store(0)
		c.observe(ctx, r, resp.StatusCode, "success", time.Since(start))
		return response, nil
	}

	out, outErr := c.handleError(r.Path, response)
	outcome := outcomeOf(outErr)
	if outErr == nil {
		outcome = "auth_passthrough"
	}
	c.observe(ctx, r, resp.StatusCode, outcome, time.Since(start))

	return out, outErr
}

func (c *Client) logRequest(req *http.Request) (*http.Request, error) {
	c.logger.Debug("Outgoing request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int64("content_length", req.ContentLength),
	)
	return req, nil
}

func (c *Client) handleTransportError(endpoint string, err error) error {
	if errors.Is(err, context.Canceled) {
		c.logger.Debug("Request canceled", zap.String("endpoint", endpoint))
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		c.logger.Warn("interceptors 504", zap.String("endpoint", endpoint), zap.Error(err))
		return c.reject(KindTimeout, endpoint, nil, err)
	}

	c.logger.Warn("interceptors Network Error", zap.String("endpoint", endpoint), zap.Error(err))
	return c.reject(KindNetwork, endpoint, nil, err)
}

func (c *Client) handleError(endpoint string, resp *Response) (*Response, error) {
	fields := []zap.Field{
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("data", resp.Body),
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		c.logger.Warn("interceptors 400", fields...)
		return nil, c.reject(KindBadRequest, endpoint, resp, nil)

	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.Warn("interceptors 401 / 403", fields...)
		if c.rejectAuthFailures {
			return nil, c.reject(KindUnauthorized, endpoint, resp, nil)
		}
		return resp, nil

	case http.StatusNotFound:
		c.logger.Warn("interceptors 404", fields...)
		return nil, c.reject(KindNotFound, endpoint, resp, nil)

	case StatusBusinessError:
		businessErrors := parseBusinessErrors(resp.Body)
		for i, entry := range businessErrors {
			c.logger.Warn(fmt.Sprintf("Business error %d ->", i+1), zap.String("error", string(entry)))
		}
		reqErr := c.reject(KindBusiness, endpoint, resp, nil)
		reqErr.BusinessErrors = businessErrors
		return nil, reqErr

	case http.StatusInternalServerError:
		c.logger.Error("interceptors 500", fields...)
		return nil, c.reject(KindServer, endpoint, resp, nil)

	case http.StatusGatewayTimeout:
		c.logger.Error("interceptors 504", fields...)
		return nil, c.reject(KindTimeout, endpoint, resp, nil)
	}

	return nil, c.reject(KindUnexpected, endpoint, resp, nil)
}

func (c *Client) reject(kind Kind, endpoint string, resp *Response, cause error) *RequestError {
	reqErr := &RequestError{
		Kind:     kind,
		Backend:  c.name,
		Endpoint: endpoint,
		Err:      cause,
	}
	if resp != nil {
		reqErr.StatusCode = resp.StatusCode
		reqErr.Body = resp.Body
	}
	return reqErr
}

func (c *Client) observe(ctx context.Context, r Request, status int, outcome string, elapsed time.Duration) {
	metrics.BackendRequestsTotal.WithLabelValues(c.name, r.Path, outcome).Inc()
	metrics.BackendRequestDuration.WithLabelValues(c.name, r.Path).Observe(elapsed.Seconds())
	if outcome == KindBusiness.String() {
		metrics.BusinessErrorsTotal.WithLabelValues(c.name).Inc()
	}

	if c.recorder == nil {
		return
	}

	payload := r.Payload
	if payload == nil {
		payload = r.Body
	}

	call := Call{
		SessionID:  SessionFromContext(ctx),
		Backend:    c.name,
		Endpoint:   r.Path,
		Method:     r.Method,
		StatusCode: status,
		Outcome:    outcome,
		Payload:    payload,
		Duration:   elapsed,
	}
	if err := c.recorder.RecordCall(context.WithoutCancel(ctx), call); err != nil {
		c.logger.Warn("Failed to record backend call", zap.String("endpoint", r.Path), zap.Error(err))
	}
}

func outcomeOf(err error) string {
	if reqErr, ok := AsRequestError(err); ok {
		return reqErr.Kind.String()
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "error"
}

// parseBusinessErrors extracts the "errors" list of a 309 body. A body
// without the list yields no entries.
func parseBusinessErrors(body []byte) []json.RawMessage {
	var payload struct {
		Errors []json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload.Errors
}
