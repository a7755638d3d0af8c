package payment

type CreatePaymentReq struct {
	BorrowingID int64 `json:"borrowing_id" validate:"required,gt=0"`
}
