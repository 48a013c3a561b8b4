package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

var statusByCode = map[domainagg.ErrorCode]int{
	domainagg.CodeInvalidType:    http.StatusBadRequest,
	domainagg.CodeInvalidAmount:  http.StatusBadRequest,
	domainagg.CodeValidation:     http.StatusBadRequest,
	domainagg.CodeForbidden:      http.StatusForbidden,
	domainagg.CodeNotFound:       http.StatusNotFound,
	domainagg.CodeConflict:       http.StatusConflict,
	domainagg.CodeRetryable:      http.StatusServiceUnavailable,
	domainagg.CodeStorageFailure: http.StatusInternalServerError,
	domainagg.CodePartialLedger:  http.StatusInternalServerError,
	domainagg.CodeInternal:       http.StatusInternalServerError,
}

// From classifies err for the wire. Server-side failures get a generic message so
// storage details do not leak to clients.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var de *domainagg.Error
	if !errors.As(err, &de) {
		return New(http.StatusInternalServerError, string(domainagg.CodeInternal), errors.New("internal error"))
	}
	status, ok := statusByCode[de.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		return New(status, string(de.Code), errors.New(publicMessage(de.Code)))
	}
	msg := de.Message
	if msg == "" {
		msg = string(de.Code)
	}
	return New(status, string(de.Code), errors.New(msg))
}

func publicMessage(code domainagg.ErrorCode) string {
	switch code {
	case domainagg.CodeRetryable:
		return "temporarily unavailable, retry the request"
	case domainagg.CodePartialLedger:
		return "ledger update failed and was rolled back"
	case domainagg.CodeStorageFailure:
		return "storage failure"
	default:
		return "internal error"
	}
}
