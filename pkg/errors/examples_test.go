package errors_test

import (
	"fmt"

	"github.com/agentstation/evently/pkg/errors"
)

// Example demonstrates basic error creation and checking.
func Example() {
	err := &errors.NotFoundError{
		Resource: "event",
		ID:       "42",
	}

	if errors.IsNotFound(err) {
		fmt.Println("Resource not found")
	}

	// Output: Resource not found
}

// Example_classify shows how a transport failure maps to a user-facing kind.
func Example_classify() {
	err := &errors.APIError{Endpoint: "/events/7/book", StatusCode: 403, Message: "Forbidden"}

	c := errors.Classify(err)
	fmt.Println(c.Kind)
	fmt.Println(c.Message)

	// Output:
	// authorization_error
	// You do not have permission to perform this action.
}

// Example_validationError shows input validation errors.
func Example_validationError() {
	err := &errors.ValidationError{
		Field:   "status",
		Value:   "PENDING",
		Message: "a request can only be accepted or rejected",
	}
	fmt.Println(err.Error())

	// Output: validation failed for field status: a request can only be accepted or rejected
}

// Example_errorChaining shows chained error handling.
func Example_errorChaining() {
	baseErr := errors.NewNetworkError("GET", "/events", fmt.Errorf("connection refused"))
	resErr := errors.WrapResource("fetch", "event", "", baseErr)

	if errors.IsNetwork(resErr) {
		fmt.Println("Server unreachable")
	}

	// Output: Server unreachable
}
