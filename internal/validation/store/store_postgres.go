package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"provenant/internal/platform/postgres"
	"provenant/internal/validation/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

// PostgresRecordStore persists validation records in validation_records.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecords(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

func (s *PostgresRecordStore) Append(ctx context.Context, r models.ValidationRecord) (models.ValidationRecord, error) {
	var seq int64
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO validation_records (
			passport_id, validator_identity, submitted_at, passed, report_locator, signature
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`,
		int64(r.PassportID), string(r.ValidatorIdentity), r.Timestamp, r.Passed, r.ReportLocator, r.Signature,
	).Scan(&seq)
	if err != nil {
		return models.ValidationRecord{}, fmt.Errorf("insert validation record: %w", err)
	}
	r.Seq = uint64(seq)
	return r, nil
}

func (s *PostgresRecordStore) ListByPassport(ctx context.Context, passportID id.PassportID) ([]models.ValidationRecord, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT seq, passport_id, validator_identity, submitted_at, passed, report_locator, signature
		FROM validation_records
		WHERE passport_id = $1
		ORDER BY seq
	`, int64(passportID))
	if err != nil {
		return nil, fmt.Errorf("list validation records: %w", err)
	}
	defer rows.Close()

	var out []models.ValidationRecord
	for rows.Next() {
		var (
			r         models.ValidationRecord
			seq, pid  int64
			validator string
		)
		if err := rows.Scan(&seq, &pid, &validator, &r.Timestamp, &r.Passed, &r.ReportLocator, &r.Signature); err != nil {
			return nil, fmt.Errorf("scan validation record: %w", err)
		}
		r.Seq = uint64(seq)
		r.PassportID = id.PassportID(pid)
		r.ValidatorIdentity = id.Identity(validator)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validation records: %w", err)
	}
	return out, nil
}

// PostgresTestResultStore persists test results in test_results.
type PostgresTestResultStore struct {
	db *sql.DB
}

func NewPostgresTestResults(db *sql.DB) *PostgresTestResultStore {
	return &PostgresTestResultStore{db: db}
}

const testResultColumns = `
	id, passport_id, test_kind, data_locator, lab_identity, submitter_identity,
	submitted_at, status, validator_identity, validated_at, test_date,
	curing_age_days, result_summary
`

func (s *PostgresTestResultStore) Create(ctx context.Context, r *models.TestResult) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO test_results (`+testResultColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		uuid.UUID(r.ID), int64(r.PassportID), string(r.Kind), r.DataLocator, string(r.LabIdentity),
		string(r.SubmitterIdentity), r.SubmittedAt, string(r.Status), string(r.ValidatorIdentity),
		r.ValidatedAt, r.TestDate, r.CuringAgeDays, r.ResultSummary,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert test result: %w", err)
	}
	return nil
}

func (s *PostgresTestResultStore) FindByID(ctx context.Context, testID id.TestResultID) (*models.TestResult, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+testResultColumns+` FROM test_results WHERE id = $1`, uuid.UUID(testID))
	return scanTestResult(row)
}

// Execute locks the row with FOR UPDATE across validate and mutate.
func (s *PostgresTestResultStore) Execute(ctx context.Context, testID id.TestResultID, validate func(*models.TestResult) error, mutate func(*models.TestResult)) (*models.TestResult, error) {
	var result *models.TestResult
	err := postgres.RunInTx(ctx, s.db, func(ctx context.Context) error {
		conn := postgres.Conn(ctx, s.db)
		r, err := scanTestResult(conn.QueryRowContext(ctx,
			`SELECT `+testResultColumns+` FROM test_results WHERE id = $1 FOR UPDATE`, uuid.UUID(testID)))
		if err != nil {
			return err
		}
		if err := validate(r); err != nil {
			return err
		}
		mutate(r)
		_, err = conn.ExecContext(ctx, `
			UPDATE test_results SET
				data_locator = $2,
				result_summary = $3,
				status = $4,
				validator_identity = $5,
				validated_at = $6
			WHERE id = $1
		`, uuid.UUID(r.ID), r.DataLocator, r.ResultSummary, string(r.Status), string(r.ValidatorIdentity), r.ValidatedAt)
		if err != nil {
			return fmt.Errorf("update test result: %w", err)
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresTestResultStore) ListByPassport(ctx context.Context, passportID id.PassportID) ([]models.TestResult, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+testResultColumns+` FROM test_results WHERE passport_id = $1 ORDER BY seq`, int64(passportID))
	if err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	defer rows.Close()

	var out []models.TestResult
	for rows.Next() {
		r, err := scanTestResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate test results: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTestResult(row rowScanner) (*models.TestResult, error) {
	var (
		r                         models.TestResult
		testID                    uuid.UUID
		pid                       int64
		kind, status              string
		lab, submitter, validator string
		validatedAt               sql.NullTime
	)
	err := row.Scan(&testID, &pid, &kind, &r.DataLocator, &lab, &submitter,
		&r.SubmittedAt, &status, &validator, &validatedAt, &r.TestDate,
		&r.CuringAgeDays, &r.ResultSummary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan test result: %w", err)
	}
	r.ID = id.TestResultID(testID)
	r.PassportID = id.PassportID(pid)
	r.Kind = models.TestKind(kind)
	r.Status = models.TestStatus(status)
	r.LabIdentity = id.Identity(lab)
	r.SubmitterIdentity = id.Identity(submitter)
	r.ValidatorIdentity = id.Identity(validator)
	if validatedAt.Valid {
		t := validatedAt.Time
		r.ValidatedAt = &t
	}
	return &r, nil
}

// PostgresLabStore persists the lab roster in authorized_labs. Revocation
// keeps the row and stamps revoked_at.
type PostgresLabStore struct {
	db *sql.DB
}

func NewPostgresLabs(db *sql.DB) *PostgresLabStore {
	return &PostgresLabStore{db: db}
}

func (s *PostgresLabStore) Authorize(ctx context.Context, lab models.Lab) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO authorized_labs (identity, authorized_by, authorized_at, revoked_at)
		VALUES ($1, $2, $3, NULL)
		ON CONFLICT (identity) DO UPDATE SET
			authorized_by = EXCLUDED.authorized_by,
			authorized_at = EXCLUDED.authorized_at,
			revoked_at = NULL
		WHERE authorized_labs.revoked_at IS NOT NULL
	`, string(lab.Identity), string(lab.AuthorizedBy), lab.AuthorizedAt)
	if err != nil {
		return fmt.Errorf("authorize lab: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("authorize lab: %w", err)
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresLabStore) Revoke(ctx context.Context, identity id.Identity, at time.Time) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE authorized_labs SET revoked_at = $2 WHERE identity = $1 AND revoked_at IS NULL`,
		string(identity), at)
	if err != nil {
		return fmt.Errorf("revoke lab: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke lab: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresLabStore) IsAuthorized(ctx context.Context, identity id.Identity) (bool, error) {
	var ok bool
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM authorized_labs WHERE identity = $1 AND revoked_at IS NULL)`,
		string(identity)).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check lab: %w", err)
	}
	return ok, nil
}

func (s *PostgresLabStore) List(ctx context.Context) ([]models.Lab, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT identity, authorized_by, authorized_at
		FROM authorized_labs
		WHERE revoked_at IS NULL
		ORDER BY authorized_at, identity
	`)
	if err != nil {
		return nil, fmt.Errorf("list labs: %w", err)
	}
	defer rows.Close()

	var out []models.Lab
	for rows.Next() {
		var identity, by string
		var lab models.Lab
		if err := rows.Scan(&identity, &by, &lab.AuthorizedAt); err != nil {
			return nil, fmt.Errorf("scan lab: %w", err)
		}
		lab.Identity = id.Identity(identity)
		lab.AuthorizedBy = id.Identity(by)
		out = append(out, lab)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labs: %w", err)
	}
	return out, nil
}
