package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("repository: duplicate")
	// ErrStale is returned when a compare-and-set write finds the row moved on.
	ErrStale = errors.New("repository: stale write")
)

const (
	uniqueViolation = "23505"
	// invalidTextRepresentation is raised for ids that do not parse as uuid.
	invalidTextRepresentation = "22P02"
)

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrDuplicate
		case invalidTextRepresentation:
			return ErrNotFound
		}
	}
	return err
}
