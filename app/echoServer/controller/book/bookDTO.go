package book

import (
	"github.com/shopspring/decimal"

	"github.com/Vasyl-Ch/library-service1.0/model"
)

type CreateBookReq struct {
	Title     string          `json:"title" validate:"required"`
	Cover     model.CoverType `json:"cover" validate:"required,oneof=HARD SOFT"`
	Inventory int64           `json:"inventory" validate:"gte=0"`
	DailyFee  decimal.Decimal `json:"daily_fee"`
	AuthorIDs []int64         `json:"author_ids" validate:"required,min=1,dive,gt=0"`
}

type UpdateBookReq struct {
	Title     string          `json:"title" validate:"required"`
	Cover     model.CoverType `json:"cover" validate:"required,oneof=HARD SOFT"`
	DailyFee  decimal.Decimal `json:"daily_fee"`
	AuthorIDs []int64         `json:"author_ids" validate:"required,min=1,dive,gt=0"`
}

type BookResp struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Cover        model.CoverType `json:"cover"`
	Inventory    int64           `json:"inventory"`
	DailyFee     decimal.Decimal `json:"daily_fee"`
	Authors      []string        `json:"authors"`
	Availability string          `json:"availability"`
}

func ToBookResp(b model.Book) BookResp {
	authors := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		authors = append(authors, a.Name+" "+a.Surname)
	}
	availability := "Not available"
	if b.Available() {
		availability = "Available"
	}
	return BookResp{
		ID:           b.ID,
		Title:        b.Title,
		Cover:        b.Cover,
		Inventory:    b.Inventory,
		DailyFee:     b.DailyFee,
		Authors:      authors,
		Availability: availability,
	}
}
