package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error is returned for any non-2xx response from a service.
type Error struct {
	Status  int
	Message string // extracted from the payload, may be empty
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service responded %d", e.Status)
	}
	return fmt.Sprintf("service responded %d: %s", e.Status, e.Message)
}

// Message returns the server-provided message carried by err, or fallback
// when the failure payload had none.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsStatus reports whether err is a service error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// parseError builds an *Error from a failure body. Services answer with
// {"message": "..."} or {"error": "..."}; anything else is ignored.
func parseError(status int, body []byte) *Error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	e := &Error{Status: status}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Message = strings.TrimSpace(payload.Message)
		if e.Message == "" {
			e.Message = strings.TrimSpace(payload.Error)
		}
	}
	return e
}
