package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"provenant/internal/platform/postgres"
	"provenant/internal/validator/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

// PostgresStore persists validators in the validators table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const validatorColumns = `
	identity, organization_name, certification_number, registered_at,
	validation_count, reputation_score, is_active
`

func (s *PostgresStore) Create(ctx context.Context, v *models.Validator) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO validators (`+validatorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		string(v.Identity), v.OrganizationName, v.CertificationNumber, v.RegisteredAt,
		int64(v.ValidationCount), v.ReputationScore, v.IsActive,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert validator: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByIdentity(ctx context.Context, identity id.Identity) (*models.Validator, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+validatorColumns+` FROM validators WHERE identity = $1`, string(identity))
	v, err := scanValidator(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *PostgresStore) IncrementValidationCount(ctx context.Context, identity id.Identity) (uint64, error) {
	var count int64
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		UPDATE validators SET validation_count = validation_count + 1
		WHERE identity = $1
		RETURNING validation_count
	`, string(identity)).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment validation count: %w", err)
	}
	return uint64(count), nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Validator, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+validatorColumns+` FROM validators ORDER BY registered_at, identity`)
	if err != nil {
		return nil, fmt.Errorf("list validators: %w", err)
	}
	defer rows.Close()

	var out []models.Validator
	for rows.Next() {
		v, err := scanValidator(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validators: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanValidator(row rowScanner) (*models.Validator, error) {
	var (
		v        models.Validator
		identity string
		count    int64
	)
	err := row.Scan(&identity, &v.OrganizationName, &v.CertificationNumber, &v.RegisteredAt,
		&count, &v.ReputationScore, &v.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan validator: %w", err)
	}
	v.Identity = id.Identity(identity)
	v.ValidationCount = uint64(count)
	return &v, nil
}
