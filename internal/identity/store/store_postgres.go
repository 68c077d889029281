package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"provenant/internal/platform/postgres"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

// allocationLock is the advisory lock key that serializes id allocation.
const allocationLock int64 = 0x70617373706f7274

// PostgresStore persists the mapping in package_keys.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Allocate joins the caller's transaction when one is in ctx so a failed
// passport insert also releases the key.
func (s *PostgresStore) Allocate(ctx context.Context, key string) (id.PassportID, error) {
	var allocated id.PassportID
	err := postgres.RunInTx(ctx, s.db, func(ctx context.Context) error {
		conn := postgres.Conn(ctx, s.db)
		if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, allocationLock); err != nil {
			return fmt.Errorf("lock id allocation: %w", err)
		}

		var exists bool
		err := conn.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM package_keys WHERE package_key = $1)`, key,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check package key: %w", err)
		}
		if exists {
			return sentinel.ErrAlreadyUsed
		}

		var n int64
		err = conn.QueryRowContext(ctx, `
			INSERT INTO package_keys (package_key, passport_id)
			SELECT $1, COALESCE(MAX(passport_id), 0) + 1 FROM package_keys
			RETURNING passport_id
		`, key).Scan(&n)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("insert package key: %w", err)
		}
		allocated = id.PassportID(n)
		return nil
	})
	if err != nil {
		return id.NoPassport, err
	}
	return allocated, nil
}

func (s *PostgresStore) Resolve(ctx context.Context, key string) (id.PassportID, error) {
	var n int64
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT passport_id FROM package_keys WHERE package_key = $1`, key,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return id.NoPassport, sentinel.ErrNotFound
	}
	if err != nil {
		return id.NoPassport, fmt.Errorf("resolve package key: %w", err)
	}
	return id.PassportID(n), nil
}
