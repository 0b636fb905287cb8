package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ngenohkevin/prize_admin/internal/database"
)

const dashboardCacheKey = "dashboard:stats"

// DashboardStats backs the home page
type DashboardStats struct {
	Prizes       int
	ActivePrizes int
	Partners     int
	NextDraw     *Prize
}

// GetDashboardStats counts prizes and partners and finds the next draw after now
func GetDashboardStats(db *database.DB, now time.Time) (DashboardStats, error) {
	if cached, found := db.Cache.Get(dashboardCacheKey); found {
		if stats, ok := cached.(DashboardStats); ok {
			return stats, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var stats DashboardStats
	err := db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM prizes),
			(SELECT COUNT(*) FROM prizes WHERE status = $1),
			(SELECT COUNT(*) FROM partners)
	`, StatusActive).Scan(&stats.Prizes, &stats.ActivePrizes, &stats.Partners)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("error counting dashboard stats: %w", err)
	}

	next, err := scanPrize(db.Pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM prizes
		WHERE draw_at > $1 AND status = $2
		ORDER BY draw_at
		LIMIT 1
	`, prizeColumns), now, StatusActive))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return DashboardStats{}, fmt.Errorf("error finding next draw: %w", err)
	default:
		stats.NextDraw = &next
	}

	db.Cache.Set(dashboardCacheKey, stats, time.Minute)
	return stats, nil
}
