package templates

import (
	"fmt"
	"time"

	"github.com/ngenohkevin/prize_admin/internal/timestamp"
)

func formatDate(t time.Time) string {
	ts := timestamp.FromTime(t)
	return timestamp.FormatDate(&ts)
}

func formatPrice(p float64) string {
	return fmt.Sprintf("$%.2f", p)
}

func formatDateTimeLocal(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04")
}
