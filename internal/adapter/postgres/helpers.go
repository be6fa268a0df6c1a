package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Strob0t/askdesk/internal/domain"
)

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateInvalidText         = "22P02"
)

// nullIfEmpty returns nil for empty strings (for nullable UUID columns).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// orEmpty returns items unchanged if non-nil, or an empty slice if nil.
// Useful to ensure JSON serialization produces [] instead of null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// isBadReference reports whether err is a PostgreSQL error caused by a
// caller-supplied ID: one that does not parse as a UUID or names no row.
func isBadReference(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateForeignKeyViolation || pgErr.Code == sqlStateInvalidText
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation
}

// wrapErr classifies err and wraps it with the given message:
// pgx.ErrNoRows becomes domain.ErrNotFound, a unique violation becomes
// domain.ErrConflict, a malformed or dangling reference becomes
// domain.ErrValidation, other server-side SQL errors and context
// cancellation pass through, and everything else (dial, TLS, pool closed)
// is domain.ErrStorageUnavailable.
func wrapErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrConflict, err)
	case isBadReference(err):
		return fmt.Errorf("%s: unknown reference: %w: %w", msg, domain.ErrValidation, err)
	case errors.As(err, &pgErr):
		return fmt.Errorf("%s: %w", msg, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", msg, err)
	default:
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrStorageUnavailable, err)
	}
}

// likeEscaper escapes LIKE metacharacters for use with ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike returns s with \, % and _ escaped so an ILIKE pattern built
// from it matches s literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
