// model/book.go
package model

import "github.com/shopspring/decimal"

type CoverType string

const (
	CoverHard CoverType = "HARD"
	CoverSoft CoverType = "SOFT"
)

type Book struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Cover     CoverType       `json:"cover"`
	Inventory int64           `json:"inventory"`
	DailyFee  decimal.Decimal `json:"daily_fee"`
	Authors   []Author        `json:"authors,omitempty"`
}

// Available reports whether at least one physical copy can be borrowed.
func (b Book) Available() bool { return b.Inventory > 0 }
