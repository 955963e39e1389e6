package apiclient

import (
	"context"
	"errors"
	"fmt"
)

// GenericErrorMessage is shown when a failure carries no usable text.
const GenericErrorMessage = "Something went wrong. Please try again."

// Codes for failures that never reached the API.
const (
	CodeNetwork = "NETWORK_ERROR"
	CodeTimeout = "TIMEOUT"
	CodeDecode  = "DECODE_ERROR"
)

// APIError is the single failure type returned by Client. Status is zero when
// the request never produced an HTTP response.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func transportError(err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Code: CodeTimeout, Message: "The request timed out", Err: err}
	}
	return &APIError{Code: CodeNetwork, Err: err}
}

// FormatError turns any error into the one line shown to a user.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return GenericErrorMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return GenericErrorMessage
}
