package httpbase

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNetwork      = errors.New("network error")
	ErrTimeout      = errors.New("gateway timeout")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrBusiness     = errors.New("business error")
	ErrServer       = errors.New("server error")
	ErrUnexpected   = errors.New("unexpected status")
)

type Kind int

const (
	KindNetwork Kind = iota + 1
	KindTimeout
	KindBadRequest
	KindUnauthorized
	KindNotFound
	KindBusiness
	KindServer
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindBusiness:
		return "business"
	case KindServer:
		return "server"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindTimeout:
		return ErrTimeout
	case KindBadRequest:
		return ErrBadRequest
	case KindUnauthorized:
		return ErrUnauthorized
	case KindNotFound:
		return ErrNotFound
	case KindBusiness:
		return ErrBusiness
	case KindServer:
		return ErrServer
	default:
		return ErrUnexpected
	}
}

// RequestError is the rejection produced for a failed backend call.
// StatusCode is zero when no response was received.
type RequestError struct {
	Kind           Kind
	Backend        string
	Endpoint       string
	StatusCode     int
	Body           []byte
	BusinessErrors []json.RawMessage
	Err            error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s: %v", e.Backend, e.Endpoint, e.Kind.sentinel(), e.Err)
	}
	return fmt.Sprintf("%s %s: %s (status %d)", e.Backend, e.Endpoint, e.Kind.sentinel(), e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// AsRequestError unwraps err into a *RequestError.
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}
