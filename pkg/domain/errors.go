package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed or missing input rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError reports an absent plan, task, instance, or template.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// PreconditionError reports an operation rejected by the lifecycle guard. The
// message names the unmet condition; Fields lists offending fields when the
// rejection targets specific ones.
type PreconditionError struct {
	Op     string
	Reason string
	Fields []string
}

func (e PreconditionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Reason)
	if len(e.Fields) > 0 {
		msg += " (" + strings.Join(e.Fields, ", ") + ")"
	}
	return msg
}

// ExternalServiceError wraps a failure from a remote collaborator during a
// synchronous call. Feedback emission failures are never wrapped in this type;
// they are logged and swallowed by the dispatcher.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e ExternalServiceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e ExternalServiceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var v NotFoundError
	return errors.As(err, &v)
}

// IsPrecondition reports whether err is (or wraps) a PreconditionError.
func IsPrecondition(err error) bool {
	var v PreconditionError
	return errors.As(err, &v)
}

// IsExternalService reports whether err is (or wraps) an ExternalServiceError.
func IsExternalService(err error) bool {
	var v ExternalServiceError
	return errors.As(err, &v)
}
