// Package apperr carries the failure kinds that the risk pipeline reports to callers.
// Callers branch on Kind instead of on concrete error types.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindSchemaMismatch   Kind = "schema_mismatch"
	KindNoData           Kind = "no_data"
	KindModelUnavailable Kind = "model_unavailable"
	KindInvalidInput     Kind = "invalid_input"
	KindInternal         Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	// Fields names the unresolved columns for schema mismatches.
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func MissingColumns(fields []string) *Error {
	return &Error{
		Kind:    KindSchemaMismatch,
		Message: fmt.Sprintf("missing columns: %s", strings.Join(fields, ", ")),
		Fields:  append([]string(nil), fields...),
	}
}

var ErrModelNotLoaded = &Error{Kind: KindModelUnavailable, Message: "model not loaded"}

// KindOf reports KindInternal for errors that carry no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func FieldsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindSchemaMismatch, KindNoData, KindInvalidInput:
		return http.StatusBadRequest
	case KindModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
