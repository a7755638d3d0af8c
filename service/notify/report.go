package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	telegramrepo "github.com/Vasyl-Ch/library-service1.0/repository/telegram"
)

type BorrowingStats interface {
	CountBorrowedSince(ctx context.Context, since time.Time) (int64, error)
	CountReturnedSince(ctx context.Context, since time.Time) (int64, error)
}

type PaymentStats interface {
	PaidSince(ctx context.Context, since time.Time) (int64, decimal.Decimal, error)
}

// Snapshot is the aggregate over a trailing window, exposed read-only
// for the periodic report.
type Snapshot struct {
	NewBorrowings int64           `json:"new_borrowings"`
	Returns       int64           `json:"returns"`
	PaymentCount  int64           `json:"payment_count"`
	TotalEarned   decimal.Decimal `json:"total_earned"`
}

type Reporter struct {
	br  BorrowingStats
	pr  PaymentStats
	tg  telegramrepo.Repo
	log *slog.Logger
}

func NewReporter(br BorrowingStats, pr PaymentStats, tg telegramrepo.Repo, log *slog.Logger) *Reporter {
	return &Reporter{br: br, pr: pr, tg: tg, log: log}
}

func (r *Reporter) Snapshot(ctx context.Context, since time.Time) (*Snapshot, error) {
	borrowed, err := r.br.CountBorrowedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	returned, err := r.br.CountReturnedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	count, total, err := r.pr.PaidSince(ctx, since)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		NewBorrowings: borrowed,
		Returns:       returned,
		PaymentCount:  count,
		TotalEarned:   total,
	}, nil
}

// Run pushes a daily report once per interval until ctx is canceled.
func (r *Reporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

func (r *Reporter) report(ctx context.Context) {
	snap, err := r.Snapshot(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		r.log.Error("daily report query failed", "err", err)
		return
	}
	msg := fmt.Sprintf(
		"📊 <b>Daily Report</b>\nPeriod: last 24 hours\n\n📚 New borrowings: %d\n✅ Returns: %d\n💰 Earnings: $%s\n💳 Payments: %d",
		snap.NewBorrowings, snap.Returns, snap.TotalEarned.StringFixed(2), snap.PaymentCount,
	)
	if err := r.tg.SendMessage(ctx, msg); err != nil {
		r.log.Error("daily report delivery failed", "err", err)
	}
}
