// model/borrowing.go
package model

import "time"

type Borrowing struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	BookID             int64      `json:"book_id"`
	BorrowDate         time.Time  `json:"borrow_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
}

// IsActive reports whether the book has not been returned yet.
func (b Borrowing) IsActive() bool { return b.ActualReturnDate == nil }
