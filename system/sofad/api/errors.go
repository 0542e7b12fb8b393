package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/encoding/json"
	"github.com/signadot/sofa/system/sofad/storage"
)

// Error is the body of every failed request.
type Error struct {
	Code    string `json:"error"`
	Message string `json:"reason"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Is matches errors by code, or by message when target has no code.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	if t.Message != "" {
		return e.Message == t.Message
	}
	return false
}

// MarshalJSON encodes e as {"error": code, "reason": message}, taking
// precedence over the text form.
func (e *Error) MarshalJSON() ([]byte, error) {
	type wire Error
	return json.Marshal((*wire)(e))
}

func (e *Error) UnmarshalJSON(data []byte) error {
	type wire Error
	return json.Unmarshal(data, (*wire)(e))
}

// MarshalText returns "codeLength:code:message", or just the message when
// there is no code. The length prefix keeps colons in messages intact.
func (e *Error) MarshalText() ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	if e.Code != "" {
		return []byte(fmt.Sprintf("%d:%s:%s", len(e.Code), e.Code, e.Message)), nil
	}
	return []byte(e.Message), nil
}

// UnmarshalText parses the form produced by MarshalText. Text not in that
// form becomes a message without a code.
func (e *Error) UnmarshalText(text []byte) error {
	if e == nil {
		return fmt.Errorf("cannot unmarshal into nil Error")
	}
	s := string(text)
	if lenStr, rest, ok := strings.Cut(s, ":"); ok {
		n, err := strconv.Atoi(lenStr)
		if err == nil && n >= 0 && n < len(rest) && rest[n] == ':' {
			e.Code = rest[:n]
			e.Message = rest[n+1:]
			return nil
		}
	}
	e.Code = ""
	e.Message = s
	return nil
}

// Status returns the HTTP status for e's code.
func (e *Error) Status() int {
	if e == nil {
		return http.StatusOK
	}
	if st, ok := statusByCode[e.Code]; ok {
		return st
	}
	return http.StatusInternalServerError
}

// Error codes
const (
	ErrCodeFileExists          = "file_exists"
	ErrCodeNotFound            = "not_found"
	ErrCodeConflict            = "conflict"
	ErrCodeBadRequest          = "bad_request"
	ErrCodeBusy                = "busy"
	ErrCodeIllegalDatabaseName = "illegal_database_name"
	ErrCodeForbidden           = "forbidden"
	ErrCodeMethodNotAllowed    = "method_not_allowed"
	ErrCodeTooLarge            = "too_large"
	ErrCodeInternal            = "internal"
)

var statusByCode = map[string]int{
	ErrCodeFileExists:          http.StatusPreconditionFailed,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeBusy:                http.StatusServiceUnavailable,
	ErrCodeIllegalDatabaseName: http.StatusBadRequest,
	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeMethodNotAllowed:    http.StatusMethodNotAllowed,
	ErrCodeTooLarge:            http.StatusRequestEntityTooLarge,
	ErrCodeInternal:            http.StatusInternalServerError,
}

func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// FromError maps err to its wire form. A nil err gives nil, and an err
// that already is an *Error is returned as is.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	code := ErrCodeInternal
	switch {
	case errors.Is(err, storage.ErrDatabaseExists):
		code = ErrCodeFileExists
	case errors.Is(err, storage.ErrDatabaseNotFound),
		errors.Is(err, storage.ErrDocumentNotFound):
		code = ErrCodeNotFound
	case errors.Is(err, storage.ErrConflict):
		code = ErrCodeConflict
	case errors.Is(err, storage.ErrMalformedRevision),
		errors.Is(err, storage.ErrInvalidDocument):
		code = ErrCodeBadRequest
	case errors.Is(err, storage.ErrBusy):
		code = ErrCodeBusy
	}
	return NewError(code, err.Error())
}
