package state

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrBusy            = errors.New("action already in progress")
	ErrRejected        = errors.New("rejected by service")
)
