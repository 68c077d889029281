package store

import (
	"context"
	"database/sql"
	"fmt"

	"provenant/internal/platform/postgres"
	"provenant/internal/provenance/models"
	id "provenant/pkg/domain"
)

// PostgresStore persists provenance in material_batches and process_events.
// The bigserial seq column gives insertion order.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) AppendMaterial(ctx context.Context, batch models.MaterialBatch) (models.MaterialBatch, error) {
	var seq int64
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO material_batches (
			passport_id, batch_number, material_type, supplier_name,
			certificate_hash, received_at, expiry_at, recorded_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq
	`,
		int64(batch.PassportID), batch.BatchNumber, batch.MaterialType, batch.SupplierName,
		batch.CertificateHash, batch.ReceivedAt, batch.ExpiryAt, string(batch.RecordedBy),
	).Scan(&seq)
	if err != nil {
		return models.MaterialBatch{}, fmt.Errorf("insert material batch: %w", err)
	}
	batch.Seq = uint64(seq)
	return batch, nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, event models.ProcessEvent) (models.ProcessEvent, error) {
	var seq int64
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO process_events (
			passport_id, event_kind, operator_identity, occurred_at, data_locator, parameters_hash
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`,
		int64(event.PassportID), event.EventKind, string(event.OperatorIdentity),
		event.Timestamp, event.DataLocator, event.ParametersHash,
	).Scan(&seq)
	if err != nil {
		return models.ProcessEvent{}, fmt.Errorf("insert process event: %w", err)
	}
	event.Seq = uint64(seq)
	return event, nil
}

func (s *PostgresStore) ListMaterials(ctx context.Context, passportID id.PassportID) ([]models.MaterialBatch, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT seq, passport_id, batch_number, material_type, supplier_name,
		       certificate_hash, received_at, expiry_at, recorded_by
		FROM material_batches
		WHERE passport_id = $1
		ORDER BY seq
	`, int64(passportID))
	if err != nil {
		return nil, fmt.Errorf("list material batches: %w", err)
	}
	defer rows.Close()

	var out []models.MaterialBatch
	for rows.Next() {
		var (
			b          models.MaterialBatch
			seq, pid   int64
			expiry     sql.NullTime
			recordedBy string
		)
		if err := rows.Scan(&seq, &pid, &b.BatchNumber, &b.MaterialType, &b.SupplierName,
			&b.CertificateHash, &b.ReceivedAt, &expiry, &recordedBy); err != nil {
			return nil, fmt.Errorf("scan material batch: %w", err)
		}
		b.Seq = uint64(seq)
		b.PassportID = id.PassportID(pid)
		b.RecordedBy = id.Identity(recordedBy)
		if expiry.Valid {
			t := expiry.Time
			b.ExpiryAt = &t
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate material batches: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, passportID id.PassportID) ([]models.ProcessEvent, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT seq, passport_id, event_kind, operator_identity, occurred_at, data_locator, parameters_hash
		FROM process_events
		WHERE passport_id = $1
		ORDER BY seq
	`, int64(passportID))
	if err != nil {
		return nil, fmt.Errorf("list process events: %w", err)
	}
	defer rows.Close()

	var out []models.ProcessEvent
	for rows.Next() {
		var (
			e        models.ProcessEvent
			seq, pid int64
			operator string
		)
		if err := rows.Scan(&seq, &pid, &e.EventKind, &operator, &e.Timestamp, &e.DataLocator, &e.ParametersHash); err != nil {
			return nil, fmt.Errorf("scan process event: %w", err)
		}
		e.Seq = uint64(seq)
		e.PassportID = id.PassportID(pid)
		e.OperatorIdentity = id.Identity(operator)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate process events: %w", err)
	}
	return out, nil
}
