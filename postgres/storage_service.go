package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prior-it/socialauth/core"
)

func NewStorageService(db *DB, namespace uuid.UUID) *StorageService {
	return &StorageService{db, namespace}
}

// Postgres implementation of the core Storage interface.
// All keys are scoped to a namespace, usually one per browser session.
type StorageService struct {
	db        *DB
	namespace uuid.UUID
}

// Force struct to implement the core interface
var _ core.Storage = &StorageService{}

// Get returns the stored value. Reading a value counts as using it, so it is not removed by DeleteOldStorageEntries.
func (s *StorageService) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		ctx,
		`UPDATE provider_storage SET updated_at = now() WHERE namespace = $1 AND key = $2
		RETURNING value`,
		s.namespace,
		key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("cannot get %q from storage: %w", key, convertPgError(err))
	}
	return value, nil
}

func (s *StorageService) Set(ctx context.Context, key string, value string) error {
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO provider_storage (namespace, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		s.namespace,
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("cannot store %q: %w", key, convertPgError(err))
	}
	return nil
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(
		ctx,
		"DELETE FROM provider_storage WHERE namespace = $1 AND key = $2",
		s.namespace,
		key,
	)
	if err != nil {
		return fmt.Errorf("cannot delete %q from storage: %w", key, convertPgError(err))
	}
	return nil
}

// DeleteOldStorageEntries deletes all entries, in every namespace, that were not read or written for the specified
// duration.
func DeleteOldStorageEntries(ctx context.Context, db *DB, age time.Duration) (int64, error) {
	totalMicroseconds := age.Microseconds()
	days := int32(totalMicroseconds / (24 * time.Hour.Microseconds()))  //nolint:mnd
	microseconds := totalMicroseconds % (24 * time.Hour.Microseconds()) //nolint:mnd
	months := days / 30                                                 //nolint:mnd
	days = days % 30                                                    //nolint:mnd
	interval := pgtype.Interval{
		Microseconds: microseconds,
		Days:         days,
		Months:       months,
		Valid:        true,
	}
	tag, err := db.Exec(
		ctx,
		"DELETE FROM provider_storage WHERE updated_at < now() - $1::interval",
		interval,
	)
	if err != nil {
		return 0, fmt.Errorf("cannot delete old storage entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
