package models

import (
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup by ID matches no row
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would break a reference held by
	// another row
	ErrConflict = errors.New("conflict")
)

// Postgres SQLSTATE codes
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// ValidationErrors maps a form field to the message shown next to it
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, v[f])
	}
	return strings.Join(msgs, "; ")
}

// Get returns the message for field, or ""
func (v ValidationErrors) Get(field string) string {
	if v == nil {
		return ""
	}
	return v[field]
}

func (v ValidationErrors) add(field, msg string) {
	if _, exists := v[field]; !exists {
		v[field] = msg
	}
}
