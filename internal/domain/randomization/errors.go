package randomization

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is the stable, client-visible identifier of a failure kind.
// Clients branch on the code, never on the message.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation_error"
	CodeConfig             ErrorCode = "config_error"
	CodeLocked             ErrorCode = "locked"
	CodeNoList             ErrorCode = "no_list"
	CodeNoActiveScheme     ErrorCode = "no_active_scheme"
	CodeDuplicate          ErrorCode = "duplicate_assignment"
	CodeExhausted          ErrorCode = "exhausted"
	CodeNotFound           ErrorCode = "not_found"
	CodeActiveSchemeExists ErrorCode = "active_scheme_exists"
	CodeConflict           ErrorCode = "conflict"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Error is the canonical randomization error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with a code.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code when available.
func CodeOf(err error) ErrorCode {
	var rErr *Error
	if !errors.As(err, &rErr) {
		return ""
	}
	return rErr.Code
}

// MessageOf returns the human-readable part of a coded error.
func MessageOf(err error) string {
	var rErr *Error
	if errors.As(err, &rErr) && rErr.Message != "" {
		return rErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsBusinessOutcome reports whether err is an expected, user-facing result
// rather than an infrastructure fault.
func IsBusinessOutcome(err error) bool {
	switch CodeOf(err) {
	case CodeValidation, CodeConfig, CodeLocked, CodeNoList, CodeNoActiveScheme,
		CodeDuplicate, CodeExhausted, CodeNotFound, CodeActiveSchemeExists:
		return true
	default:
		return false
	}
}

func ValidationError(op, msg string) error { return NewError(CodeValidation, op, msg, nil) }

func ConfigError(op, msg string) error { return NewError(CodeConfig, op, msg, nil) }

func LockedError(op string, configID uint) error {
	return NewError(CodeLocked, op, fmt.Sprintf("randomization config %d is locked", configID), nil)
}

func NoListError(op string, configID uint) error {
	return NewError(CodeNoList, op, fmt.Sprintf("randomization config %d has no generated list", configID), nil)
}

func NoActiveSchemeError(op string, studyID int) error {
	return NewError(CodeNoActiveScheme, op, fmt.Sprintf("no active randomization scheme for study %d", studyID), nil)
}

func DuplicateAssignmentError(op string, studySubjectID int) error {
	return NewError(CodeDuplicate, op, fmt.Sprintf("subject %d is already randomized", studySubjectID), nil)
}

func ExhaustedError(op, stratumKey string) error {
	return NewError(CodeExhausted, op, fmt.Sprintf("No available randomization slots (stratum %s)", stratumKey), nil)
}

func NotFoundError(op, what string) error {
	return NewError(CodeNotFound, op, what+" not found", nil)
}
