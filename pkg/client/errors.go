package client

import (
	"errors"
	"net/http"
)

// Op identifies one of the client operations.
type Op string

const (
	OpFetchTasks       Op = "fetch_tasks"
	OpAddTask          Op = "add_task"
	OpUpdateTask       Op = "update_task"
	OpDeleteTask       Op = "delete_task"
	OpChangeTaskStatus Op = "change_task_status"
)

// Operation errors. Their text is shown to end users verbatim.
var (
	ErrFetchTasks       = errors.New("Failed to fetch tasks")
	ErrAddTask          = errors.New("Failed to add task")
	ErrUpdateTask       = errors.New("Failed to update task")
	ErrDeleteTask       = errors.New("Failed to delete task")
	ErrChangeTaskStatus = errors.New("Failed to change task status")
)

// Causes carried by an *Error.
var (
	ErrMissingBaseURL   = errors.New("base URL is required")
	ErrInvalidBaseURL   = errors.New("invalid base URL")
	ErrEmptyToken       = errors.New("bearer token is required")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrBackendFailure   = errors.New("backend reported failure")
	ErrEmptyResponse    = errors.New("empty response body")
)

var opErrors = map[Op]error{
	OpFetchTasks:       ErrFetchTasks,
	OpAddTask:          ErrAddTask,
	OpUpdateTask:       ErrUpdateTask,
	OpDeleteTask:       ErrDeleteTask,
	OpChangeTaskStatus: ErrChangeTaskStatus,
}

// Sentinel returns the operation error for op.
func (o Op) Sentinel() error {
	if err, ok := opErrors[o]; ok {
		return err
	}
	return ErrUnexpectedStatus
}

// Error is returned by every failed client call.
//
// Error() yields only the operation's fixed message. StatusCode holds the
// HTTP status, or the status reported inside the response envelope, and is 0
// when no response was received. Err is the underlying cause.
type Error struct {
	Op         Op
	StatusCode int
	Message    string
	Err        error
}

func newError(op Op, status int, cause error) *Error {
	return &Error{
		Op:         op,
		StatusCode: status,
		Message:    op.Sentinel().Error(),
		Err:        cause,
	}
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the operation sentinel, so errors.Is(err, ErrAddTask) holds for
// any add failure.
func (e *Error) Is(target error) bool {
	return target == e.Op.Sentinel()
}

// StatusCode returns the status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether the backend rejected the credential.
func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
