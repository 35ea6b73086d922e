package apperr

import (
	"errors"
	"fmt"
)

// Op names the stage of a database call an error was raised in.
type Op string

const (
	OpOpen    Op = "open"
	OpQuery   Op = "query"
	OpExecute Op = "execute"
)

type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func NewValidationWrap(msg string, err error) *ValidationError {
	return &ValidationError{Message: msg, Err: err}
}

// ConnectionError reports a failure to open or authenticate a database session.
type ConnectionError struct {
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	return "connection failed: " + e.Message
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func NewConnection(msg string) *ConnectionError {
	return &ConnectionError{Message: msg}
}

func NewConnectionWrap(msg string, err error) *ConnectionError {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &ConnectionError{Message: msg, Err: err}
}

// DatabaseError is a failure reported by the driver or the engine while a
// statement was bound, executed or read back. Code carries the engine's own
// error code when the driver exposes one (SQLSTATE, error number).
type DatabaseError struct {
	Op      Op
	Code    string
	Message string
	Err     error
}

func (e *DatabaseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: [%s] %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

func NewDatabase(op Op, code, msg string, err error) *DatabaseError {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &DatabaseError{Op: op, Code: code, Message: msg, Err: err}
}

// UnknownError covers everything that did not come out of the driver:
// rejected parameter values, recovered panics, caller defects.
type UnknownError struct {
	Message string
	Err     error
}

func (e *UnknownError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return "unknown error: " + e.Message + ": " + e.Err.Error()
	}
	return "unknown error: " + e.Message
}

func (e *UnknownError) Unwrap() error {
	return e.Err
}

func NewUnknown(msg string) *UnknownError {
	return &UnknownError{Message: msg}
}

func NewUnknownWrap(msg string, err error) *UnknownError {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &UnknownError{Message: msg, Err: err}
}

// Classify maps err onto exactly one of ConnectionError, DatabaseError or
// UnknownError. Errors that are already classified pass through unchanged;
// anything else is attributed to the driver stage named by op.
func Classify(op Op, err error) error {
	if err == nil {
		return nil
	}
	if IsClassified(err) {
		return err
	}
	if op == OpOpen {
		return NewConnectionWrap("", err)
	}
	return NewDatabase(op, "", "", err)
}

func IsClassified(err error) bool {
	return IsConnection(err) || IsDatabase(err) || IsUnknown(err)
}

func IsConnection(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

func IsDatabase(err error) bool {
	var de *DatabaseError
	return errors.As(err, &de)
}

func IsUnknown(err error) bool {
	var ue *UnknownError
	return errors.As(err, &ue)
}

// Message returns the bare driver or cause message of a classified error,
// without the prefixes Error() adds.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce.Message
	}
	var de *DatabaseError
	if errors.As(err, &de) {
		return de.Message
	}
	var ue *UnknownError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return err.Error()
}
