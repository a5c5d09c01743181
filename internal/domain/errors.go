package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed taxonomy of caller-visible failures.
type ErrorCode string

const (
	CodeInvalidArgument       ErrorCode = "INVALID_ARGUMENT"
	CodeUnauthenticated       ErrorCode = "UNAUTHENTICATED"
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeTargetNotFound        ErrorCode = "TARGET_NOT_FOUND"
	CodeInvalidState          ErrorCode = "INVALID_STATE"
	CodeAlreadyDone           ErrorCode = "ALREADY_DONE"
	CodePermissionDenied      ErrorCode = "PERMISSION_DENIED"
	CodeValidation            ErrorCode = "VALIDATION_ERROR"
	CodeDuplicateSetID        ErrorCode = "DUPLICATE_SET_ID"
	CodeMixedOpTypes          ErrorCode = "MIXED_OP_TYPES"
	CodeMultiSetEdit          ErrorCode = "MULTI_SET_EDIT"
	CodeMultipleStructuralOps ErrorCode = "MULTIPLE_STRUCTURAL_OPS"
	CodeInternal              ErrorCode = "INTERNAL"
)

// Error is a coded failure surfaced verbatim to callers.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// With returns a copy of the error carrying an extra detail entry.
func (e *Error) With(key string, value any) *Error {
	out := *e
	out.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return &out
}

// NewError builds a coded error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...any) *Error {
	return NewError(CodeInvalidArgument, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return NewError(CodeNotFound, format, args...)
}

func TargetNotFound(format string, args ...any) *Error {
	return NewError(CodeTargetNotFound, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return NewError(CodeInvalidState, format, args...)
}

func Validation(format string, args ...any) *Error {
	return NewError(CodeValidation, format, args...)
}

func PermissionDenied(format string, args ...any) *Error {
	return NewError(CodePermissionDenied, format, args...)
}

// CodeOf extracts the code of a coded error anywhere in the chain, or INTERNAL.
func CodeOf(err error) ErrorCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// AsError returns the coded error in the chain, if any.
func AsError(err error) (*Error, bool) {
	var coded *Error
	if errors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}
