// Package pricing computes rental costs and overdue fines.
// All functions are pure; rounding to cents happens only at the
// persistence boundary, never here.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Overdue fines bill at double the daily fee.
var fineMultiplier = decimal.NewFromInt(2)

// DaysBetween returns whole calendar days from a to b, ignoring the
// time-of-day component. Negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

// RentalCost is dailyFee times the borrow window in days, with a
// minimum of one billed day for same-day windows.
func RentalCost(dailyFee decimal.Decimal, borrowDate, expectedReturnDate time.Time) decimal.Decimal {
	days := DaysBetween(borrowDate, expectedReturnDate)
	if days < 1 {
		days = 1
	}
	return dailyFee.Mul(decimal.NewFromInt(int64(days)))
}

// OverdueFine is dailyFee * 2 per day past the expected return date,
// zero when the borrowing is not overdue.
func OverdueFine(dailyFee decimal.Decimal, expectedReturnDate, today time.Time) decimal.Decimal {
	overdue := DaysBetween(expectedReturnDate, today)
	if overdue <= 0 {
		return decimal.Zero
	}
	return dailyFee.Mul(fineMultiplier).Mul(decimal.NewFromInt(int64(overdue)))
}
