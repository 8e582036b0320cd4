// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/prnake/friendli-client/schema"
)

// Precondition failures. They are returned before any request is built.
var (
	ErrModelRequired   = errors.New("`model` is required for serverless endpoints.")
	ErrModelNotAllowed = errors.New("`model` is not allowed for dedicated endpoints.")
)

// EndpointNotFoundMessage is the APIError message for every 404 response.
const EndpointNotFoundMessage = "Endpoint is not found. This may be due to an invalid model name. " +
	"See https://docs.friendli.ai/guides/serverless_endpoints/pricing " +
	"to find out available models."

// SchemaError reports a payload rejected by a binary schema.
type SchemaError = schema.Error

// StatusError is the transport-level failure behind an APIError: the request
// completed but the status code was not 2xx.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	var b strings.Builder
	if e.Method != "" {
		b.WriteString(e.Method)
		b.WriteString(" ")
	}
	if e.URL != "" {
		b.WriteString(e.URL)
		b.WriteString(": ")
	}
	b.WriteString(fmt.Sprintf("http %d", e.StatusCode))
	if t := http.StatusText(e.StatusCode); t != "" {
		b.WriteString(" ")
		b.WriteString(t)
	}
	return b.String()
}

// APIError is a non-2xx response from the serving API.
//
// Message is the fixed EndpointNotFoundMessage for 404 and the verbatim
// response body otherwise. The *StatusError it wraps keeps the request detail.
type APIError struct {
	Message    string
	StatusCode int
	RequestID  string

	cause error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.cause }

// GRPCStatus lets status.FromError and status.Code classify API errors.
func (e *APIError) GRPCStatus() *status.Status {
	return status.New(httpStatusToCode(e.StatusCode), e.Message)
}

// AsAPIError extracts *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func httpStatusToCode(code int) codes.Code {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.Aborted
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusNotImplemented:
		return codes.Unimplemented
	case http.StatusServiceUnavailable:
		return codes.Unavailable
	default:
		if code >= 500 {
			return codes.Internal
		}
		return codes.Unknown
	}
}

// checkHTTPError translates a non-2xx response into an *APIError. The body is
// consumed and closed in that case; a failure while reading it is returned
// unchanged.
func checkHTTPError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	cause := &StatusError{StatusCode: resp.StatusCode}
	var requestID string
	if req := resp.Request; req != nil {
		cause.Method = req.Method
		if req.URL != nil {
			cause.URL = req.URL.String()
		}
		requestID = req.Header.Get(HeaderRequestID)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return &APIError{
			Message:    EndpointNotFoundMessage,
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
			cause:      cause,
		}
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}
	return &APIError{
		Message:    string(body),
		StatusCode: resp.StatusCode,
		RequestID:  requestID,
		cause:      cause,
	}
}
