package borrowing

import (
	"time"

	"github.com/Vasyl-Ch/library-service1.0/model"
	"github.com/Vasyl-Ch/library-service1.0/service/pricing"
)

type CreateBorrowingReq struct {
	BookID             int64  `json:"book_id" validate:"required,gt=0"`
	ExpectedReturnDate string `json:"expected_return_date" validate:"required,datetime=2006-01-02"`
}

type BorrowingResp struct {
	ID                 int64   `json:"id"`
	UserID             int64   `json:"user_id"`
	BookID             int64   `json:"book_id"`
	BorrowDate         string  `json:"borrow_date"`
	ExpectedReturnDate string  `json:"expected_return_date"`
	ActualReturnDate   *string `json:"actual_return_date,omitempty"`
	IsActive           bool    `json:"is_active"`
	DaysBorrowed       int     `json:"days_borrowed"`
}

const dateLayout = "2006-01-02"

func ToBorrowingResp(b model.Borrowing, now time.Time) BorrowingResp {
	resp := BorrowingResp{
		ID:                 b.ID,
		UserID:             b.UserID,
		BookID:             b.BookID,
		BorrowDate:         b.BorrowDate.Format(dateLayout),
		ExpectedReturnDate: b.ExpectedReturnDate.Format(dateLayout),
		IsActive:           b.IsActive(),
	}
	until := now
	if b.ActualReturnDate != nil {
		s := b.ActualReturnDate.Format(dateLayout)
		resp.ActualReturnDate = &s
		until = *b.ActualReturnDate
	}
	days := pricing.DaysBetween(b.BorrowDate, until)
	if days < 1 {
		days = 1
	}
	resp.DaysBorrowed = days
	return resp
}
