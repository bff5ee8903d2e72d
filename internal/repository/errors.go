package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceStatus indicates the service answered with a non-2xx status
	ErrServiceStatus = errors.New("analysis service returned an error status")

	// ErrUnexpectedContent indicates a 2xx response whose body is not what the endpoint promises
	ErrUnexpectedContent = errors.New("unexpected response content")
)

// StatusError carries the status code and the service's error text
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrServiceStatus
}
