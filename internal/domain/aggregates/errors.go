package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes ledger failure semantics across transports.
type ErrorCode string

const (
	CodeInvalidType    ErrorCode = "invalid_type"
	CodeInvalidAmount  ErrorCode = "invalid_amount"
	CodeValidation     ErrorCode = "validation"
	CodeNotFound       ErrorCode = "not_found"
	CodeForbidden      ErrorCode = "forbidden"
	CodeConflict       ErrorCode = "conflict"
	CodeRetryable      ErrorCode = "retryable"
	CodeStorageFailure ErrorCode = "storage_failure"
	CodePartialLedger  ErrorCode = "partial_ledger_failure"
	CodeInternal       ErrorCode = "internal"
)

// Error is the canonical aggregate error wrapper.
type Error struct {
	Code ErrorCode
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

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or wrapped err) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// PartialLedgerError records a failed second ledger step after the first one already ran.
// The enclosing transaction is rolled back; the value exists so the failure can be alerted on.
type PartialLedgerError struct {
	Op             string
	TransactionID  string
	RevertedMember string
	TargetMember   string
	Stage          string
	Cause          error
}

func (e *PartialLedgerError) Error() string {
	return fmt.Sprintf("%s: ledger step %q failed after revert on member %s (tx %s, target %s): %v",
		e.Op, e.Stage, e.RevertedMember, e.TransactionID, e.TargetMember, e.Cause)
}

func (e *PartialLedgerError) Unwrap() error { return e.Cause }

// NewPartialLedgerError wraps detail into an Error carrying CodePartialLedger.
func NewPartialLedgerError(detail *PartialLedgerError) error {
	return &Error{
		Code:    CodePartialLedger,
		Op:      detail.Op,
		Message: "ledger update aborted after revert",
		Cause:   detail,
	}
}
