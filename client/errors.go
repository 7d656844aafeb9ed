package client

import (
	"errors"
	"fmt"

	sdkerrors "github.com/taskboard/taskboard/client/internal/errors"
	"github.com/taskboard/taskboard/client/internal/session"
	"github.com/taskboard/taskboard/client/internal/shardqueue"
	"github.com/taskboard/taskboard/client/internal/types"
	"github.com/taskboard/taskboard/client/internal/workflow"
)

// Re-export shared SDK errors so callers compare against a single symbol.
var (
	ErrInvalidSession = session.ErrInvalidSession
	ErrSuperseded     = session.ErrSuperseded
	ErrTerminalStatus = workflow.ErrTerminal
	ErrExecutorClosed = shardqueue.ErrExecutorClosed
	ErrValidation     = types.ErrValidation
)

// ErrNotAuthenticated is returned by operations that need a session when
// there is none.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrTaskNotFound is returned when a task is not in its project's list.
var ErrTaskNotFound = errors.New("task not found")

// ErrUnknownKey is returned for cache keys no collection is served under.
var ErrUnknownKey = errors.New("unknown cache key")

// ErrBackPressure is returned when the client's internal shard queue is full.
var ErrBackPressure = shardqueue.ErrQueueFull

// IsBackPressure reports whether err is a back-pressure error.
func IsBackPressure(err error) bool { return errors.Is(err, ErrBackPressure) }

// IsForbidden reports a 403 from the service.
func IsForbidden(err error) bool { return sdkerrors.IsForbidden(err) }

// IsUnauthorized reports a 401 from the service.
func IsUnauthorized(err error) bool { return sdkerrors.IsUnauthorized(err) }

// IsRetryable reports whether repeating the operation may succeed.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrValidation) || errors.Is(err, ErrNotAuthenticated) {
		return false
	}
	return !sdkerrors.IsIrrecoverable(err)
}

// UserMessage returns the text to show for err: the service's detail when
// there is one.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return "Not signed in"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrTerminalStatus), errors.Is(err, ErrTaskNotFound):
		return err.Error()
	}
	return sdkerrors.UserMessage(err)
}

// notAuthenticated is ErrNotAuthenticated classified so the executor does
// not retry it.
func notAuthenticated() error {
	return &sdkerrors.ClassifiedError{Category: sdkerrors.Irrecoverable, Underlying: ErrNotAuthenticated}
}

// isQuietSessionError reports session outcomes that are recovered locally.
func isQuietSessionError(err error) bool {
	return errors.Is(err, ErrInvalidSession) || errors.Is(err, ErrSuperseded)
}

// StatusChangeError reports a status change the service did not apply. The
// board keeps showing the previous status.
type StatusChangeError struct {
	TaskID int64
	From   TaskStatus // empty when unknown
	To     TaskStatus
	Err    error
}

func (e *StatusChangeError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("change task %d status to %s: %v", e.TaskID, e.To, e.Err)
	}
	return fmt.Sprintf("change task %d status %s → %s: %v", e.TaskID, e.From, e.To, e.Err)
}

func (e *StatusChangeError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the change may succeed.
func (e *StatusChangeError) Retryable() bool { return IsRetryable(e.Err) }
