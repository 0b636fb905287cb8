package models

import (
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() PrizeForm {
	return PrizeForm{
		PrizeName:  "iPhone 15",
		TicketSold: "120",
		Price:      "4.99",
		Partner:    "Akram",
		StockLevel: "50",
		Status:     StatusActive,
	}
}

func TestPrizeFormValidate(t *testing.T) {
	data, err := validForm().Validate()
	require.NoError(t, err)
	assert.Equal(t, "iPhone 15", data.PrizeName)
	assert.Equal(t, 120, data.TicketSold)
	assert.InDelta(t, 4.99, data.Price, 1e-9)
	assert.Nil(t, data.DrawAt)
}

func TestPrizeFormValidateMessages(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*PrizeForm)
		field string
		msg   string
	}{
		{"missing name", func(f *PrizeForm) { f.PrizeName = "" }, "prize_name", "Prize Name is required"},
		{"missing tickets", func(f *PrizeForm) { f.TicketSold = "" }, "ticket_sold", "Ticket Sold is required"},
		{"tickets not a number", func(f *PrizeForm) { f.TicketSold = "many" }, "ticket_sold", "Ticket Sold must be a number"},
		{"negative tickets", func(f *PrizeForm) { f.TicketSold = "-1" }, "ticket_sold", "Ticket Sold cannot be negative"},
		{"missing price", func(f *PrizeForm) { f.Price = "" }, "price", "Price is required"},
		{"price not a number", func(f *PrizeForm) { f.Price = "cheap" }, "price", "Price must be a number"},
		{"missing partner", func(f *PrizeForm) { f.Partner = "" }, "partner", "Partner is required"},
		{"missing stock level", func(f *PrizeForm) { f.StockLevel = "" }, "stock_level", "Stock Level is required"},
		{"unknown stock level", func(f *PrizeForm) { f.StockLevel = "30" }, "stock_level", "Stock Level is not one of the listed levels"},
		{"missing status", func(f *PrizeForm) { f.Status = "" }, "status", "Status is required"},
		{"unknown status", func(f *PrizeForm) { f.Status = "Paused" }, "status", "Status must be Active or Inactive"},
		{"bad draw date", func(f *PrizeForm) { f.DrawAt = "next tuesday-ish" }, "draw_at", "Draw Date is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.edit(&f)

			_, err := f.Validate()
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Len(t, verrs, 1)
			assert.Equal(t, tt.msg, verrs.Get(tt.field))
		})
	}
}

func TestPrizeFormDrawDate(t *testing.T) {
	f := validForm()
	f.DrawAt = "2025-06-01T18:30"

	data, err := f.Validate()
	require.NoError(t, err)
	require.NotNil(t, data.DrawAt)
	assert.True(t, time.Date(2025, time.June, 1, 18, 30, 0, 0, time.UTC).Equal(*data.DrawAt))
}

func TestPrizeFormRoundTrip(t *testing.T) {
	p := Prize{
		PrizeName:  "Bike",
		TicketSold: 7,
		Price:      12.5,
		Partner:    "Jhon",
		StockLevel: "10",
		Status:     StatusInactive,
		DrawAt:     pgtype.Timestamptz{Time: time.Date(2025, 2, 3, 4, 5, 0, 0, time.UTC), Valid: true},
	}

	data, err := PrizeFormFromPrize(p).Validate()
	require.NoError(t, err)
	assert.Equal(t, p.TicketSold, data.TicketSold)
	assert.Equal(t, p.Price, data.Price)
	assert.True(t, p.DrawAt.Time.Equal(*data.DrawAt))
}

func TestPrizeFormFromValues(t *testing.T) {
	v := url.Values{}
	v.Set("prize_name", "  Watch ")
	v.Set("ticket_sold", "3")
	v.Set("status", "Active")

	f := PrizeFormFromValues(v)
	assert.Equal(t, "Watch", f.PrizeName)
	assert.Equal(t, "3", f.TicketSold)
	assert.Equal(t, "Active", f.Status)
	assert.Empty(t, f.Partner)
}

func TestValidationErrorsString(t *testing.T) {
	errs := ValidationErrors{"status": "Status is required", "partner": "Partner is required"}
	assert.Equal(t, "Partner is required; Status is required", errs.Error())

	var none ValidationErrors
	assert.Empty(t, none.Get("status"))
}

func TestDrawTarget(t *testing.T) {
	assert.False(t, Prize{}.DrawTarget().Valid())

	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	p := Prize{DrawAt: pgtype.Timestamptz{Time: at, Valid: true}}
	got, ok := p.DrawTarget().Time()
	assert.True(t, ok)
	assert.Equal(t, at, got)
}

func TestPartnerJoined(t *testing.T) {
	p := Partner{JoinedAt: []byte(`{"seconds":1700000000,"nanoseconds":0}`)}
	assert.Equal(t, "14, Nov 2023", p.Joined())

	p = Partner{JoinedAt: []byte(`{}`)}
	assert.Equal(t, "Invalid date", p.Joined())

	p = Partner{CreatedAt: pgtype.Timestamp{Time: time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC), Valid: true}}
	assert.Equal(t, "09, Mar 2024", p.Joined())

	assert.Equal(t, "Invalid date", Partner{}.Joined())
}

func TestValidatePartner(t *testing.T) {
	assert.NoError(t, ValidatePartner("Akram", ""))
	assert.NoError(t, ValidatePartner("Akram", "akram@example.com"))

	err := ValidatePartner(" ", "nope")
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Name is required", verrs.Get("name"))
	assert.Equal(t, "Email is invalid", verrs.Get("email"))
}

func TestPaginatedResult(t *testing.T) {
	r := NewPaginatedResult([]int{1, 2}, 31, 2, 15)
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)

	page, size := normalizePage(0, 500)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, size)
}

func TestPrizeCacheKey(t *testing.T) {
	a := prizeCacheKey(1, 15, "", "")
	assert.Equal(t, a, prizeCacheKey(1, 15, "", ""))
	assert.NotEqual(t, a, prizeCacheKey(2, 15, "", ""))
	assert.Contains(t, a, "prizes:")
}

func TestDeletePartnerError(t *testing.T) {
	err := deletePartnerError("p1", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503", ConstraintName: "prizes_partner_fkey"}))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "p1")

	err = deletePartnerError("p1", errors.New("connection reset"))
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestHasPgCode(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, hasPgCode(dup, uniqueViolation))
	assert.False(t, hasPgCode(dup, foreignKeyViolation))
	assert.False(t, hasPgCode(errors.New("plain"), uniqueViolation))
	assert.False(t, hasPgCode(nil, uniqueViolation))
}

func TestUnknownPartner(t *testing.T) {
	var verrs ValidationErrors
	require.ErrorAs(t, unknownPartner(), &verrs)
	assert.Equal(t, "Partner is not a registered partner", verrs.Get("partner"))
}
