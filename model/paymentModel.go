// model/payment.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

type PaymentType string

const (
	TypePayment PaymentType = "PAYMENT"
	TypeFine    PaymentType = "FINE"
)

type Payment struct {
	ID          int64           `json:"id"`
	BorrowingID int64           `json:"borrowing_id"`
	Type        PaymentType     `json:"payment_type"`
	Status      PaymentStatus   `json:"status"`
	MoneyToPay  decimal.Decimal `json:"money_to_pay"`
	SessionURL  *string         `json:"session_url,omitempty"`
	SessionID   *string         `json:"session_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
