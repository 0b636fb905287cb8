package templates

//go:generate templ generate

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ngenohkevin/prize_admin/internal/countdown"
	"github.com/ngenohkevin/prize_admin/internal/models"
)

// PrizeFormView is everything the inventory form needs
type PrizeFormView struct {
	ID        string
	IsEdit    bool
	Form      models.PrizeForm
	Errors    models.ValidationErrors
	Partners  []string
	Thumbnail *string
}

// PartnerListView is the partner management page
type PartnerListView struct {
	Partners []models.Partner
	Search   string
	Name     string
	Email    string
	Errors   models.ValidationErrors
}

var navItems = []struct{ Key, Label, Href string }{
	{"home", "Dashboard", "/"},
	{"prizes", "Inventory", "/prizes"},
	{"partners", "Partner Management", "/partners"},
}

var prizeStatuses = []string{models.StatusActive, models.StatusInactive}

// GetImageSrc returns the src for a prize thumbnail, or the placeholder
func GetImageSrc(thumbnail *string) string {
	if thumbnail == nil || *thumbnail == "" {
		return "/static/img/thumb.png"
	}
	return *thumbnail
}

// getPrizeTitle returns the heading of the inventory form
func getPrizeTitle(isEdit bool) string {
	if isEdit {
		return "Edit Prize"
	}
	return "Add Prize"
}

// prizeFormAction posts new prizes to the collection. Edits carry the PUT
// override in the query string because the multipart body is only read by
// the handler.
func prizeFormAction(v PrizeFormView) string {
	if v.IsEdit {
		return "/prizes/" + v.ID + "?_method=PUT"
	}
	return "/prizes"
}

// CountdownURL is the fragment endpoint a countdown polls
func CountdownURL(target time.Time, mode countdown.Mode) string {
	q := url.Values{}
	q.Set("target", target.UTC().Format(time.RFC3339))
	q.Set("mode", mode.String())
	return "/countdown?" + q.Encode()
}

// CountdownStreamURL is the websocket endpoint of a fine countdown
func CountdownStreamURL(target time.Time) string {
	q := url.Values{}
	q.Set("target", target.UTC().Format(time.RFC3339))
	q.Set("mode", countdown.ModeFine.String())
	return "/countdown/ws?" + q.Encode()
}

func pollTrigger(mode countdown.Mode) string {
	return fmt.Sprintf("every %ds", int(mode.Interval()/time.Second))
}

func pageURL(page int, search, status string) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if search != "" {
		q.Set("q", search)
	}
	if status != "" {
		q.Set("status", status)
	}
	return "/prizes?" + q.Encode()
}

// approvalURL flips the approval of p
func approvalURL(p models.Partner) string {
	return fmt.Sprintf("/partners/%s/approval?approved=%t", p.ID, !p.Approved)
}
