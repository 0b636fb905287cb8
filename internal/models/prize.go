package models

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ngenohkevin/prize_admin/internal/countdown"
	"github.com/ngenohkevin/prize_admin/internal/database"
)

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// StockLevels are the stock levels a prize can be listed with
var StockLevels = []string{"10", "50", "70", "90", "100"}

type Prize struct {
	ID          string             `json:"id"`
	PrizeName   string             `json:"prize_name"`
	TicketSold  int                `json:"ticket_sold"`
	Price       float64            `json:"price"`
	Partner     string             `json:"partner"`
	StockLevel  string             `json:"stock_level"`
	Status      string             `json:"status"`
	Description string             `json:"description"`
	Thumbnail   *string            `json:"thumbnail"`
	DrawAt      pgtype.Timestamptz `json:"draw_at"`
	CreatedAt   pgtype.Timestamp   `json:"created_at"`
	UpdatedAt   pgtype.Timestamp   `json:"updated_at"`
}

// DrawTarget is the countdown target for the prize draw. It is invalid when
// no draw is scheduled.
func (p Prize) DrawTarget() countdown.Target {
	if !p.DrawAt.Valid {
		return countdown.Target{}
	}
	return countdown.At(p.DrawAt.Time)
}

// PrizeForm holds the raw values submitted by the inventory form
type PrizeForm struct {
	PrizeName   string
	TicketSold  string
	Price       string
	Partner     string
	StockLevel  string
	Status      string
	Description string
	DrawAt      string
}

// PrizeData is a validated PrizeForm
type PrizeData struct {
	PrizeName   string
	TicketSold  int
	Price       float64
	Partner     string
	StockLevel  string
	Status      string
	Description string
	DrawAt      *time.Time
	Thumbnail   *string
}

// PrizeFormFromValues reads a PrizeForm out of submitted form values
func PrizeFormFromValues(v url.Values) PrizeForm {
	return PrizeForm{
		PrizeName:   strings.TrimSpace(v.Get("prize_name")),
		TicketSold:  strings.TrimSpace(v.Get("ticket_sold")),
		Price:       strings.TrimSpace(v.Get("price")),
		Partner:     strings.TrimSpace(v.Get("partner")),
		StockLevel:  strings.TrimSpace(v.Get("stock_level")),
		Status:      strings.TrimSpace(v.Get("status")),
		Description: strings.TrimSpace(v.Get("description")),
		DrawAt:      strings.TrimSpace(v.Get("draw_at")),
	}
}

// PrizeFormFromPrize fills the form for editing an existing prize
func PrizeFormFromPrize(p Prize) PrizeForm {
	f := PrizeForm{
		PrizeName:   p.PrizeName,
		TicketSold:  strconv.Itoa(p.TicketSold),
		Price:       strconv.FormatFloat(p.Price, 'f', 2, 64),
		Partner:     p.Partner,
		StockLevel:  p.StockLevel,
		Status:      p.Status,
		Description: p.Description,
	}
	if p.DrawAt.Valid {
		f.DrawAt = p.DrawAt.Time.UTC().Format("2006-01-02T15:04")
	}
	return f
}

// Validate checks the form and converts it. The returned error, if any, is a
// ValidationErrors.
func (f PrizeForm) Validate() (PrizeData, error) {
	errs := ValidationErrors{}
	data := PrizeData{
		PrizeName:   f.PrizeName,
		Partner:     f.Partner,
		StockLevel:  f.StockLevel,
		Status:      f.Status,
		Description: f.Description,
	}

	if f.PrizeName == "" {
		errs.add("prize_name", "Prize Name is required")
	}

	if f.TicketSold == "" {
		errs.add("ticket_sold", "Ticket Sold is required")
	} else if n, err := strconv.Atoi(f.TicketSold); err != nil {
		errs.add("ticket_sold", "Ticket Sold must be a number")
	} else if n < 0 {
		errs.add("ticket_sold", "Ticket Sold cannot be negative")
	} else {
		data.TicketSold = n
	}

	if f.Price == "" {
		errs.add("price", "Price is required")
	} else if p, err := strconv.ParseFloat(f.Price, 64); err != nil {
		errs.add("price", "Price must be a number")
	} else if p < 0 {
		errs.add("price", "Price cannot be negative")
	} else {
		data.Price = p
	}

	if f.Partner == "" {
		errs.add("partner", "Partner is required")
	}

	if f.StockLevel == "" {
		errs.add("stock_level", "Stock Level is required")
	} else if !contains(StockLevels, f.StockLevel) {
		errs.add("stock_level", "Stock Level is not one of the listed levels")
	}

	switch f.Status {
	case "":
		errs.add("status", "Status is required")
	case StatusActive, StatusInactive:
	default:
		errs.add("status", "Status must be Active or Inactive")
	}

	if f.DrawAt != "" {
		at, ok := countdown.ParseTarget(f.DrawAt).Time()
		if !ok {
			errs.add("draw_at", "Draw Date is invalid")
		} else {
			data.DrawAt = &at
		}
	}

	if len(errs) > 0 {
		return PrizeData{}, errs
	}
	return data, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

const prizeColumns = `id, prize_name, ticket_sold, price, partner, stock_level, status,
		       description, thumbnail, draw_at, created_at, updated_at`

func scanPrize(row pgx.Row) (Prize, error) {
	var p Prize
	err := row.Scan(
		&p.ID, &p.PrizeName, &p.TicketSold, &p.Price, &p.Partner, &p.StockLevel, &p.Status,
		&p.Description, &p.Thumbnail, &p.DrawAt, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// prizeCacheKey creates a cache key for a page of prizes
func prizeCacheKey(page, pageSize int, status, search string) string {
	key := fmt.Sprintf("page=%d:size=%d:status=%s:search=%s", page, pageSize, status, search)
	return fmt.Sprintf("prizes:%x", md5.Sum([]byte(key)))
}

// GetPrizesPaginated lists prizes newest first, optionally filtered by status
// and a name/partner search
func GetPrizesPaginated(db *database.DB, page, pageSize int, status, search string) (*PaginatedResult[Prize], error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	page, pageSize = normalizePage(page, pageSize)

	cacheKey := prizeCacheKey(page, pageSize, status, search)
	if cached, found := db.Cache.Get(cacheKey); found {
		if result, ok := cached.(*PaginatedResult[Prize]); ok {
			return result, nil
		}
	}

	var where []string
	var args []any
	if status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		where = append(where, fmt.Sprintf("(LOWER(prize_name) LIKE $%d OR LOWER(partner) LIKE $%d)", len(args), len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var totalCount int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM prizes %s", whereClause)
	if err := db.Pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("error counting prizes: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM prizes
		%s
		ORDER BY created_at DESC, prize_name
		LIMIT $%d OFFSET $%d
	`, prizeColumns, whereClause, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying prizes: %w", err)
	}
	defer rows.Close()

	var prizes []Prize
	for rows.Next() {
		p, err := scanPrize(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning prize row: %w", err)
		}
		prizes = append(prizes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prize rows: %w", err)
	}

	result := NewPaginatedResult(prizes, totalCount, page, pageSize)
	db.Cache.Set(cacheKey, result, 5*time.Minute)

	return result, nil
}

// GetPrizeByID retrieves a single prize
func GetPrizeByID(db *database.DB, id string) (Prize, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM prizes WHERE id = $1`, prizeColumns)

	p, err := scanPrize(db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Prize{}, fmt.Errorf("prize %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Prize{}, fmt.Errorf("error finding prize: %w", err)
	}

	return p, nil
}

// CreatePrize inserts a new prize
func CreatePrize(db *database.DB, d PrizeData) (Prize, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	newID := uuid.New().String()
	log.Printf("Creating prize with id=%s, name=%s, partner=%s, status=%s", newID, d.PrizeName, d.Partner, d.Status)

	query := fmt.Sprintf(`
		INSERT INTO prizes (id, prize_name, ticket_sold, price, partner, stock_level, status,
		                    description, thumbnail, draw_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING %s
	`, prizeColumns)

	p, err := scanPrize(db.Pool.QueryRow(ctx, query,
		newID, d.PrizeName, d.TicketSold, d.Price, d.Partner, d.StockLevel, d.Status,
		d.Description, d.Thumbnail, d.DrawAt,
	))
	if hasPgCode(err, foreignKeyViolation) {
		return Prize{}, unknownPartner()
	}
	if err != nil {
		log.Printf("Database error creating prize: %v", err)
		return Prize{}, fmt.Errorf("error creating prize: %w", err)
	}

	db.Cache.DeletePrefix("prizes:")
	db.Cache.Delete(dashboardCacheKey)
	return p, nil
}

// UpdatePrize overwrites a prize
func UpdatePrize(db *database.DB, id string, d PrizeData) (Prize, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE prizes
		SET prize_name = $2, ticket_sold = $3, price = $4, partner = $5, stock_level = $6,
		    status = $7, description = $8, thumbnail = $9, draw_at = $10,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING %s
	`, prizeColumns)

	p, err := scanPrize(db.Pool.QueryRow(ctx, query,
		id, d.PrizeName, d.TicketSold, d.Price, d.Partner, d.StockLevel,
		d.Status, d.Description, d.Thumbnail, d.DrawAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Prize{}, fmt.Errorf("prize %s: %w", id, ErrNotFound)
	}
	if hasPgCode(err, foreignKeyViolation) {
		return Prize{}, unknownPartner()
	}
	if err != nil {
		return Prize{}, fmt.Errorf("error updating prize: %w", err)
	}

	db.Cache.DeletePrefix("prizes:")
	db.Cache.Delete(dashboardCacheKey)
	return p, nil
}

func unknownPartner() ValidationErrors {
	return ValidationErrors{"partner": "Partner is not a registered partner"}
}

// DeletePrize removes a prize
func DeletePrize(db *database.DB, id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	tag, err := db.Pool.Exec(ctx, "DELETE FROM prizes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("error deleting prize: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("prize %s: %w", id, ErrNotFound)
	}

	db.Cache.DeletePrefix("prizes:")
	db.Cache.Delete(dashboardCacheKey)
	return nil
}
