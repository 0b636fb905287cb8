package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ngenohkevin/prize_admin/internal/database"
	"github.com/ngenohkevin/prize_admin/internal/timestamp"
)

const approvedPartnersCacheKey = "partners:approved"

type Partner struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Approved  bool             `json:"approved"`
	JoinedAt  json.RawMessage  `json:"joined_at"`
	CreatedAt pgtype.Timestamp `json:"created_at"`
}

// Joined renders the partner's join date. Partners imported from the old
// document store carry a {seconds, nanoseconds} record; the rest fall back
// to the row creation time.
func (p Partner) Joined() string {
	if len(p.JoinedAt) > 0 {
		return timestamp.FormatJSON(p.JoinedAt)
	}
	if !p.CreatedAt.Valid {
		return timestamp.InvalidDate
	}
	ts := timestamp.FromTime(p.CreatedAt.Time)
	return timestamp.FormatDate(&ts)
}

// ValidatePartner checks the partner form fields
func ValidatePartner(name, email string) error {
	errs := ValidationErrors{}
	if strings.TrimSpace(name) == "" {
		errs.add("name", "Name is required")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			errs.add("email", "Email is invalid")
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func scanPartner(row pgx.Row) (Partner, error) {
	var p Partner
	var joined []byte
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Approved, &joined, &p.CreatedAt)
	if len(joined) > 0 && string(joined) != "null" {
		p.JoinedAt = joined
	}
	return p, err
}

func queryPartners(db *database.DB, query string, args ...any) ([]Partner, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying partners: %w", err)
	}
	defer rows.Close()

	var partners []Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning partner row: %w", err)
		}
		partners = append(partners, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partner rows: %w", err)
	}

	return partners, nil
}

// GetAllPartners lists every partner by name
func GetAllPartners(db *database.DB) ([]Partner, error) {
	return queryPartners(db, `
		SELECT id, name, email, approved, joined_at, created_at
		FROM partners
		ORDER BY name
	`)
}

// SearchPartners matches name or email
func SearchPartners(db *database.DB, q string) ([]Partner, error) {
	return queryPartners(db, `
		SELECT id, name, email, approved, joined_at, created_at
		FROM partners
		WHERE LOWER(name) LIKE $1 OR LOWER(email) LIKE $1
		ORDER BY name
	`, "%"+strings.ToLower(q)+"%")
}

// GetApprovedPartnerNames feeds the partner dropdown of the inventory form
func GetApprovedPartnerNames(db *database.DB) ([]string, error) {
	if cached, found := db.Cache.Get(approvedPartnersCacheKey); found {
		if names, ok := cached.([]string); ok {
			return names, nil
		}
	}

	partners, err := queryPartners(db, `
		SELECT id, name, email, approved, joined_at, created_at
		FROM partners
		WHERE approved = TRUE
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(partners))
	for _, p := range partners {
		names = append(names, p.Name)
	}

	db.Cache.Set(approvedPartnersCacheKey, names, 5*time.Minute)
	return names, nil
}

// GetPartnerByID retrieves a single partner
func GetPartnerByID(db *database.DB, id string) (Partner, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	p, err := scanPartner(db.Pool.QueryRow(ctx, `
		SELECT id, name, email, approved, joined_at, created_at
		FROM partners
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Partner{}, fmt.Errorf("partner %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Partner{}, fmt.Errorf("error finding partner: %w", err)
	}
	return p, nil
}

// CreatePartner inserts a partner awaiting approval
func CreatePartner(db *database.DB, name, email string) (Partner, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	newID := uuid.New().String()
	log.Printf("Creating partner with id=%s, name=%s", newID, name)

	p, err := scanPartner(db.Pool.QueryRow(ctx, `
		INSERT INTO partners (id, name, email, approved)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, name, email, approved, joined_at, created_at
	`, newID, name, email))
	if hasPgCode(err, uniqueViolation) {
		return Partner{}, ValidationErrors{"name": "A partner with this name already exists"}
	}
	if err != nil {
		log.Printf("Database error creating partner: %v", err)
		return Partner{}, fmt.Errorf("error creating partner: %w", err)
	}

	db.Cache.Delete(dashboardCacheKey)
	return p, nil
}

// SetPartnerApproved approves or revokes a partner
func SetPartnerApproved(db *database.DB, id string, approved bool) (Partner, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	p, err := scanPartner(db.Pool.QueryRow(ctx, `
		UPDATE partners
		SET approved = $2
		WHERE id = $1
		RETURNING id, name, email, approved, joined_at, created_at
	`, id, approved))
	if errors.Is(err, pgx.ErrNoRows) {
		return Partner{}, fmt.Errorf("partner %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Partner{}, fmt.Errorf("error updating partner: %w", err)
	}

	db.Cache.Delete(approvedPartnersCacheKey)
	return p, nil
}

// DeletePartner removes a partner that no prize refers to. The prizes
// foreign key rejects the delete otherwise, which surfaces as ErrConflict.
func DeletePartner(db *database.DB, id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	tag, err := db.Pool.Exec(ctx, "DELETE FROM partners WHERE id = $1", id)
	if err != nil {
		return deletePartnerError(id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("partner %s: %w", id, ErrNotFound)
	}

	db.Cache.Delete(approvedPartnersCacheKey)
	db.Cache.Delete(dashboardCacheKey)
	return nil
}

func deletePartnerError(id string, err error) error {
	if hasPgCode(err, foreignKeyViolation) {
		return fmt.Errorf("partner %s is still referenced by prizes: %w", id, ErrConflict)
	}
	return fmt.Errorf("error deleting partner: %w", err)
}
