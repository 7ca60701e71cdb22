package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/nebula-criteo/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeConfig, "start_date is required").
		WithDetail("option", "start_date")

	fmt.Println(err.Error())

	// Output:
	// config: start_date is required
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.EOF, errors.ErrorTypeAuthentication, "token exchange failed")

	if errors.IsType(err, errors.ErrorTypeAuthentication) {
		fmt.Println("This is an auth error")
	}
	if errors.Is(err, io.EOF) {
		fmt.Println("Caused by EOF")
	}

	// Output:
	// This is an auth error
	// Caused by EOF
}

// ExampleNewCoercionError shows how the offending field and value are surfaced.
func ExampleNewCoercionError() {
	err := errors.NewCoercionError("Clicks", "forty-two", nil)

	field, _ := err.Detail("field")
	value, _ := err.Detail("value")
	fmt.Println(field, value)
	fmt.Println(err)

	// Output:
	// Clicks forty-two
	// coercion: cannot coerce field "Clicks" value "forty-two"
}

// ExampleIsRetryable shows which error types the transport retries.
func ExampleIsRetryable() {
	fmt.Println(errors.IsRetryable(errors.New(errors.ErrorTypeRateLimit, "429")))
	fmt.Println(errors.IsRetryable(errors.New(errors.ErrorTypeConnection, "reset by peer")))
	fmt.Println(errors.IsRetryable(errors.New(errors.ErrorTypeConfig, "bad start_date")))
	fmt.Println(errors.IsRetryable(io.EOF))

	// Output:
	// true
	// true
	// false
	// false
}
