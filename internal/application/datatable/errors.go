package datatable

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/aces/bvlfeedback/internal/infrastructure/clients/tabledata"
)

// ErrorKind classifies why a load failed. All kinds render the same way.
type ErrorKind int

const (
	KindTransport ErrorKind = iota + 1
	KindParse
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyMounted is returned by a second Mount on the same loader.
	ErrAlreadyMounted = errors.New("datatable: loader already mounted")
	// ErrClosed is returned by Mount after Close.
	ErrClosed = errors.New("datatable: loader closed")
)

// LoadError is the error recorded in a Failed state.
type LoadError struct {
	Kind ErrorKind
	// Code is the short classification shown before the text: an HTTP status
	// number, "error", "timeout", "parsererror" or "config".
	Code string
	Text string
	Err  error
}

func (e *LoadError) Error() string {
	return e.Code + ": " + e.Text
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func configurationError(text string) *LoadError {
	return &LoadError{Kind: KindConfiguration, Code: "config", Text: text}
}

func classify(err error) *LoadError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}

	var statusErr *tabledata.StatusError
	if errors.As(err, &statusErr) {
		text := statusErr.Body
		if text == "" {
			text = http.StatusText(statusErr.StatusCode)
		}
		return &LoadError{Kind: KindTransport, Code: strconv.Itoa(statusErr.StatusCode), Text: text, Err: err}
	}

	var decodeErr *tabledata.DecodeError
	if errors.As(err, &decodeErr) {
		return &LoadError{Kind: KindParse, Code: "parsererror", Text: decodeErr.Err.Error(), Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &LoadError{Kind: KindTransport, Code: "timeout", Text: err.Error(), Err: err}
	}

	return &LoadError{Kind: KindTransport, Code: "error", Text: err.Error(), Err: err}
}
