package pricing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Vasyl-Ch/library-service1.0/service/pricing"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRentalCost(t *testing.T) {
	fee := decimal.RequireFromString("2.00")
	d := date(2024, time.March, 10)

	got := pricing.RentalCost(fee, d, d.AddDate(0, 0, 5))
	require.True(t, got.Equal(decimal.RequireFromString("10.00")), "got %s", got)
}

func TestRentalCost_MinimumOneDay(t *testing.T) {
	fee := decimal.RequireFromString("1.50")
	d := date(2024, time.March, 10)

	got := pricing.RentalCost(fee, d, d)
	require.True(t, got.Equal(decimal.RequireFromString("1.50")), "got %s", got)

	// A window that ends in the past still bills one day.
	got = pricing.RentalCost(fee, d, d.AddDate(0, 0, -2))
	require.True(t, got.Equal(decimal.RequireFromString("1.50")), "got %s", got)
}

func TestOverdueFine(t *testing.T) {
	fee := decimal.RequireFromString("2.00")
	d := date(2024, time.March, 10)

	got := pricing.OverdueFine(fee, d, d.AddDate(0, 0, 3))
	require.True(t, got.Equal(decimal.RequireFromString("12.00")), "got %s", got)
}

func TestOverdueFine_NotOverdue(t *testing.T) {
	fee := decimal.RequireFromString("2.00")
	d := date(2024, time.March, 10)

	require.True(t, pricing.OverdueFine(fee, d, d).IsZero())
	require.True(t, pricing.OverdueFine(fee, d, d.AddDate(0, 0, -1)).IsZero())
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2024, time.March, 10, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, time.March, 11, 0, 1, 0, 0, time.UTC)
	require.Equal(t, 1, pricing.DaysBetween(a, b))
}
