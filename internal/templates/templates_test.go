package templates

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ngenohkevin/prize_admin/internal/countdown"
	"github.com/ngenohkevin/prize_admin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestCountdownCoarsePolls(t *testing.T) {
	target := now.Add(90061 * time.Second)
	out := render(t, Countdown(countdown.At(target), now, countdown.ModeCoarse))

	assert.Contains(t, out, "1 Day: 1 Hours: 1 Mins left")
	assert.Contains(t, out, `hx-trigger="every 60s"`)
	assert.Contains(t, out, `hx-get="/countdown?mode=coarse&amp;target=2025-03-02T13%3A01%3A01Z"`)
}

func TestCountdownFineStreams(t *testing.T) {
	out := render(t, Countdown(countdown.At(now.Add(50*time.Second)), now, countdown.ModeFine))

	assert.Contains(t, out, "Hours: 0 Minutes: 0 Seconds: 50")
	assert.Contains(t, out, `data-countdown-ws="/countdown/ws?`)
	assert.NotContains(t, out, "hx-get")
}

func TestCountdownInvalid(t *testing.T) {
	out := render(t, Countdown(countdown.ParseTarget("garbage"), now, countdown.ModeCoarse))
	assert.Contains(t, out, "Invalid date")
	assert.NotContains(t, out, "hx-get")
}

func TestPrizeFormShowsErrorsAndEscapes(t *testing.T) {
	thumb := "/uploads/a.png"
	out := render(t, PrizeForm(PrizeFormView{
		ID:        "p1",
		IsEdit:    true,
		Form:      models.PrizeForm{PrizeName: `<script>x</script>`, Partner: "Jhon", StockLevel: "50", Status: "Inactive"},
		Errors:    models.ValidationErrors{"price": "Price is required"},
		Partners:  []string{"Akram", "Jhon"},
		Thumbnail: &thumb,
	}))

	assert.Contains(t, out, "Edit Prize")
	assert.Contains(t, out, `action="/prizes/p1?_method=PUT"`)
	assert.NotContains(t, out, `name="_method"`)
	assert.Contains(t, out, `enctype="multipart/form-data"`)
	assert.Contains(t, out, "Price is required")
	assert.Contains(t, out, `<option value="Jhon" selected>`)
	assert.Contains(t, out, `<option value="50" selected>`)
	assert.Contains(t, out, `<option value="Inactive" selected>`)
	assert.Contains(t, out, "remove_thumbnail")
	assert.NotContains(t, out, "<script>x</script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestPrizeFormCreatePostsToCollection(t *testing.T) {
	out := render(t, PrizeForm(PrizeFormView{Form: models.PrizeForm{StockLevel: "10", Status: "Active"}}))

	assert.Contains(t, out, "Add Prize")
	assert.Contains(t, out, `action="/prizes"`)
	assert.NotContains(t, out, "_method")
	assert.NotContains(t, out, "remove_thumbnail")
	assert.NotContains(t, out, `class="text-red-500 text-sm"`)
}

func TestLayoutMarksActivePage(t *testing.T) {
	out := render(t, PartnerList(PartnerListView{}))

	assert.Contains(t, out, "<!doctype html>")
	assert.Contains(t, out, "<title>Partner Management | Prize Admin</title>")
	assert.Contains(t, out, `<a class="text-sm font-medium text-primary" href="/partners">Partner Management</a>`)
	assert.Contains(t, out, `<a class="text-sm font-medium" href="/prizes">Inventory</a>`)
	assert.Contains(t, out, `<script src="/static/js/countdown.js"></script>`)
	assert.Contains(t, out, "No partners found")
}

func TestFieldError(t *testing.T) {
	assert.Empty(t, render(t, FieldError("")))
	assert.Equal(t, `<p class="text-red-500 text-sm">Name &amp; email</p>`, render(t, FieldError("Name & email")))
}

func TestPrizeListRendersCountdowns(t *testing.T) {
	result := models.NewPaginatedResult([]models.Prize{
		{ID: "a", PrizeName: "Bike", Partner: "Akram", Status: "Active", StockLevel: "10",
			DrawAt: pgtype.Timestamptz{Time: now.Add(25 * time.Hour), Valid: true}},
		{ID: "b", PrizeName: "Watch", Partner: "Jhon", Status: "Inactive", StockLevel: "50"},
	}, 40, 1, 15)

	out := render(t, PrizeList(*result, now, "", "Active"))
	assert.Contains(t, out, "1 Day: 1 Hours: 0 Mins left")
	assert.Contains(t, out, "Watch")
	assert.Contains(t, out, "Page 1 of 3")
	assert.Contains(t, out, "/prizes?page=2&amp;status=Active")
	assert.Contains(t, out, "/static/img/thumb.png")
}

func TestPrizeViewUsesFineCountdown(t *testing.T) {
	p := models.Prize{ID: "a", PrizeName: "Bike", Status: "Active",
		DrawAt:    pgtype.Timestamptz{Time: now.Add(26 * time.Hour), Valid: true},
		CreatedAt: pgtype.Timestamp{Time: time.Unix(1700000000, 0), Valid: true}}

	out := render(t, PrizeView(p, now))
	assert.Contains(t, out, "Hours: 26 Minutes: 0 Seconds: 0")
	assert.Contains(t, out, "14, Nov 2023")
}

func TestHome(t *testing.T) {
	next := models.Prize{ID: "n", PrizeName: "Car", DrawAt: pgtype.Timestamptz{Time: now.Add(90 * time.Minute), Valid: true}}
	out := render(t, Home(models.DashboardStats{Prizes: 3, ActivePrizes: 2, Partners: 5, NextDraw: &next}, now))

	assert.Contains(t, out, "Car")
	assert.Contains(t, out, "0 Day: 1 Hours: 30 Mins left")

	out = render(t, Home(models.DashboardStats{}, now))
	assert.Contains(t, out, "No draws scheduled")
}

func TestPartnerRow(t *testing.T) {
	out := render(t, PartnerRow(models.Partner{ID: "x", Name: "Akram", Approved: true, JoinedAt: []byte(`{"seconds":1700000000}`)}))
	assert.Contains(t, out, "14, Nov 2023")
	assert.Contains(t, out, " checked")
	assert.Contains(t, out, "approved=false")
}

func TestLogin(t *testing.T) {
	out := render(t, Login("Invalid username or password"))
	assert.Contains(t, out, "Invalid username or password")
}
