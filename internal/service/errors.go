package service

import "errors"

// ErrNotFound matches errors returned when the backend has no record for an id
var ErrNotFound = errors.New("not found")

// Error is returned by every service operation. Message is a fixed,
// user-facing text per operation; Detail keeps the backend's own message
// when it provided one and is only meant for logs.
type Error struct {
	Entity   string
	Op       string
	Message  string
	Detail   string
	notFound bool
}

func (e *Error) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrNotFound) see through the fixed message
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.notFound
}

// Message returns the user-facing text of err
func Message(err error) string {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
