// Package apperr carries the error codes services return to controllers.
package apperr

import "errors"

type ErrCode string

const (
	ErrOutOfStock               ErrCode = "OUT_OF_STOCK"
	ErrDuplicateActiveBorrowing ErrCode = "DUPLICATE_ACTIVE_BORROWING"
	ErrInvalidDate              ErrCode = "INVALID_DATE"
	ErrDuplicatePendingPayment  ErrCode = "DUPLICATE_PENDING_PAYMENT"
	ErrAlreadyReturned          ErrCode = "ALREADY_RETURNED"
	ErrUnpaidBalance            ErrCode = "UNPAID_BALANCE"
	ErrNotFound                 ErrCode = "NOT_FOUND"
	ErrUnauthorized             ErrCode = "UNAUTHORIZED"
	ErrPaymentGateway           ErrCode = "PAYMENT_GATEWAY_ERROR"
	ErrStorageContention        ErrCode = "STORAGE_CONTENTION"
	ErrActiveBorrowings         ErrCode = "ACTIVE_BORROWINGS"
)

type codedError struct {
	code  ErrCode
	msg   string
	cause error
}

func (e codedError) Error() string {
	if e.msg == "" {
		return string(e.code)
	}
	return e.msg
}
func (e codedError) Code() ErrCode { return e.code }
func (e codedError) Unwrap() error { return e.cause }

func New(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Wrap keeps the underlying error for logs while callers only see the
// code and message.
func Wrap(c ErrCode, msg string, cause error) error {
	return codedError{code: c, msg: msg, cause: cause}
}

// Code extracts the error code, or "" for uncoded errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

func Is(err error, c ErrCode) bool { return Code(err) == c }
