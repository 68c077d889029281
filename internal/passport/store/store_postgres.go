package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"provenant/internal/passport/models"
	"provenant/internal/platform/postgres"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

// PostgresStore persists passports in the passports table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const passportColumns = `
	id, package_key, material_id, owner_identity, creator_identity, lab_identity,
	data_locator, version, derived_hashes, material_cert_hashes, is_active,
	is_finalized, final_grade, certification_hash, created_at, updated_at, finalized_at
`

func (s *PostgresStore) Create(ctx context.Context, p *models.Passport) error {
	hashes, err := json.Marshal(p.DerivedHashes)
	if err != nil {
		return fmt.Errorf("marshal derived hashes: %w", err)
	}
	_, err = postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO passports (`+passportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		int64(p.ID), p.PackageKey, p.MaterialID, string(p.Owner), string(p.Creator), string(p.LabIdentity),
		p.DataLocator, int64(p.Version), hashes, pq.Array(p.MaterialCertHashes), p.IsActive,
		p.IsFinalized, p.FinalGrade, p.CertificationHash, p.CreatedAt, p.UpdatedAt, p.FinalizedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert passport: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, passportID id.PassportID) (*models.Passport, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+passportColumns+` FROM passports WHERE id = $1`, int64(passportID))
	return scanPassport(row)
}

// Execute locks the row with FOR UPDATE for the duration of validate and
// mutate. It joins the caller's transaction when ctx carries one.
func (s *PostgresStore) Execute(ctx context.Context, passportID id.PassportID, validate func(*models.Passport) error, mutate func(*models.Passport)) (*models.Passport, error) {
	var result *models.Passport
	err := postgres.RunInTx(ctx, s.db, func(ctx context.Context) error {
		conn := postgres.Conn(ctx, s.db)
		row := conn.QueryRowContext(ctx,
			`SELECT `+passportColumns+` FROM passports WHERE id = $1 FOR UPDATE`, int64(passportID))
		p, err := scanPassport(row)
		if err != nil {
			return err
		}
		if err := validate(p); err != nil {
			return err
		}
		if mutate == nil {
			result = p
			return nil
		}
		mutate(p)
		if err := s.update(ctx, conn, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) update(ctx context.Context, conn postgres.Querier, p *models.Passport) error {
	hashes, err := json.Marshal(p.DerivedHashes)
	if err != nil {
		return fmt.Errorf("marshal derived hashes: %w", err)
	}
	_, err = conn.ExecContext(ctx, `
		UPDATE passports SET
			owner_identity = $2,
			data_locator = $3,
			version = $4,
			derived_hashes = $5,
			material_cert_hashes = $6,
			is_active = $7,
			is_finalized = $8,
			final_grade = $9,
			certification_hash = $10,
			updated_at = $11,
			finalized_at = $12
		WHERE id = $1
	`,
		int64(p.ID), string(p.Owner), p.DataLocator, int64(p.Version), hashes,
		pq.Array(p.MaterialCertHashes), p.IsActive, p.IsFinalized, p.FinalGrade,
		p.CertificationHash, p.UpdatedAt, p.FinalizedAt,
	)
	if err != nil {
		return fmt.Errorf("update passport: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner id.Identity) ([]id.PassportID, error) {
	return s.listIDs(ctx, `SELECT id FROM passports WHERE owner_identity = $1 ORDER BY id`, string(owner))
}

func (s *PostgresStore) ListByLab(ctx context.Context, lab id.Identity) ([]id.PassportID, error) {
	return s.listIDs(ctx, `SELECT id FROM passports WHERE lab_identity = $1 ORDER BY id`, string(lab))
}

func (s *PostgresStore) ListByGrade(ctx context.Context, grade string) ([]id.PassportID, error) {
	return s.listIDs(ctx, `SELECT id FROM passports WHERE is_finalized AND final_grade = $1 ORDER BY finalized_at, id`, grade)
}

func (s *PostgresStore) listIDs(ctx context.Context, query string, arg any) ([]id.PassportID, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list passports: %w", err)
	}
	defer rows.Close()

	var ids []id.PassportID
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan passport id: %w", err)
		}
		ids = append(ids, id.PassportID(n))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passports: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPassport(row rowScanner) (*models.Passport, error) {
	var (
		p           models.Passport
		passportID  int64
		version     int64
		owner       string
		creator     string
		lab         string
		hashes      []byte
		certHashes  pq.StringArray
		finalizedAt sql.NullTime
	)
	err := row.Scan(
		&passportID, &p.PackageKey, &p.MaterialID, &owner, &creator, &lab,
		&p.DataLocator, &version, &hashes, &certHashes, &p.IsActive,
		&p.IsFinalized, &p.FinalGrade, &p.CertificationHash, &p.CreatedAt, &p.UpdatedAt, &finalizedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan passport: %w", err)
	}

	p.ID = id.PassportID(passportID)
	p.Version = uint64(version)
	p.Owner = id.Identity(owner)
	p.Creator = id.Identity(creator)
	p.LabIdentity = id.Identity(lab)
	p.DerivedHashes = map[models.DerivedHashSlot]string{}
	if len(hashes) > 0 {
		if err := json.Unmarshal(hashes, &p.DerivedHashes); err != nil {
			return nil, fmt.Errorf("decode derived hashes: %w", err)
		}
	}
	p.MaterialCertHashes = append([]string{}, certHashes...)
	if finalizedAt.Valid {
		t := finalizedAt.Time
		p.FinalizedAt = &t
	}
	return &p, nil
}
