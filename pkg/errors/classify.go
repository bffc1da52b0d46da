package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind is the user-facing category of a failure.
type Kind string

// The closed set of failure kinds.
const (
	KindNetwork        Kind = "network_error"
	KindAuthentication Kind = "authentication_error"
	KindAuthorization  Kind = "authorization_error"
	KindValidation     Kind = "validation_error"
	KindServer         Kind = "server_error"
	KindUnknown        Kind = "unknown_error"
)

// String returns the string representation of a kind.
func (k Kind) String() string {
	return string(k)
}

// User-facing messages used when the server did not send a better one.
const (
	MsgNetwork        = "Unable to reach the server. Check your connection and try again."
	MsgAuthentication = "Your session has expired. Please log in again."
	MsgAuthorization  = "You do not have permission to perform this action."
	MsgValidation     = "Some of the provided information is invalid."
	MsgServer         = "The server encountered an error. Please try again later."
	MsgUnknown        = "An unexpected error occurred."
)

// ClassifiedError is a failure sorted into exactly one Kind, with a message
// fit for display and a technical message fit for logs. It unwraps to the
// error it was built from.
type ClassifiedError struct {
	Kind       Kind
	Message    string
	Technical  string
	StatusCode int
	Fields     map[string][]string
	Err        error
}

// Error implements the error interface
func (e *ClassifiedError) Error() string {
	return e.Message
}

// Unwrap implements errors.Unwrap
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Classify sorts err into a Kind. It never fails: anything it cannot
// recognize becomes KindUnknown. Classifying an already classified error
// returns it unchanged. A nil error yields nil.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	c := &ClassifiedError{Kind: KindUnknown, Message: MsgUnknown, Technical: err.Error(), Err: err}

	var apiErr *APIError
	var netErr *NetworkError
	var valErr *ValidationError
	var authErr *AuthenticationError
	var opErr net.Error

	switch {
	case errors.As(err, &apiErr):
		c.StatusCode = apiErr.StatusCode
		c.Fields = apiErr.Fields
		c.Kind, c.Message = classifyStatus(apiErr.StatusCode, apiErr.Message)
	case errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &opErr):
		c.Kind, c.Message = KindNetwork, MsgNetwork
	case errors.As(err, &valErr):
		c.Kind, c.Message = KindValidation, valErr.Message
		if valErr.Field != "" {
			c.Fields = map[string][]string{valErr.Field: {valErr.Message}}
		}
	case errors.As(err, &authErr):
		c.Kind, c.Message = KindAuthentication, MsgAuthentication
	}

	if c.Message == "" {
		c.Message = defaultMessage(c.Kind)
	}
	return c
}

// KindOf returns the Kind of err, or the empty Kind for nil.
func KindOf(err error) Kind {
	if c := Classify(err); c != nil {
		return c.Kind
	}
	return ""
}

// IsKind reports whether err classifies as k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

func classifyStatus(status int, serverMsg string) (Kind, string) {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthentication, MsgAuthentication
	case status == http.StatusForbidden:
		return KindAuthorization, MsgAuthorization
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation, firstNonEmpty(serverMsg, MsgValidation)
	case status >= 500:
		return KindServer, MsgServer
	case status == 0:
		return KindUnknown, MsgUnknown
	}
	return KindUnknown, firstNonEmpty(serverMsg, fmt.Sprintf("Request failed with status %d.", status))
}

func defaultMessage(k Kind) string {
	switch k {
	case KindNetwork:
		return MsgNetwork
	case KindAuthentication:
		return MsgAuthentication
	case KindAuthorization:
		return MsgAuthorization
	case KindValidation:
		return MsgValidation
	case KindServer:
		return MsgServer
	}
	return MsgUnknown
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
