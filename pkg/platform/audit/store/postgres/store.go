package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "provenant/pkg/platform/audit"
	txcontext "provenant/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Notifications are written to notification_outbox, in the caller's
// transaction when one is present in the context, and relayed to the broker
// by the outbox relay.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL notification store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append writes a notification to the outbox.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	category := event.Category
	if category == "" {
		category = event.Action.Category()
	}

	fields, err := json.Marshal(event.Fields)
	if err != nil {
		return fmt.Errorf("marshal notification fields: %w", err)
	}

	query := `
		INSERT INTO notification_outbox (
			id, category, occurred_at, entity_kind, entity_id,
			action, actor_id, request_id, fields
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		string(category),
		event.Timestamp,
		string(event.EntityKind),
		event.EntityID,
		string(event.Action),
		event.ActorID,
		event.RequestID,
		fields,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

const selectColumns = `
	id, category, occurred_at, entity_kind, entity_id,
	action, actor_id, request_id, fields
`

// ListByEntity returns notifications for one entity in append order.
func (s *Store) ListByEntity(ctx context.Context, kind audit.EntityKind, entityID string) ([]audit.Event, error) {
	query := `SELECT ` + selectColumns + `
		FROM notification_outbox
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(kind), entityID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// FetchUnpublished returns up to limit notifications awaiting relay, oldest first.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `SELECT ` + selectColumns + `
		FROM notification_outbox
		WHERE published_at IS NULL
		ORDER BY seq ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished notifications: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// MarkPublished stamps delivered notifications.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	values := make([]string, len(ids))
	for i, eventID := range ids {
		values[i] = eventID.String()
	}
	query := `
		UPDATE notification_outbox
		SET published_at = NOW()
		WHERE id = ANY($1::uuid[]) AND published_at IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(values)); err != nil {
		return fmt.Errorf("mark notifications published: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			category string
			kind     string
			action   string
			fields   []byte
		)
		err := rows.Scan(
			&event.ID,
			&category,
			&event.Timestamp,
			&kind,
			&event.EntityID,
			&action,
			&event.ActorID,
			&event.RequestID,
			&fields,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.EntityKind = audit.EntityKind(kind)
		event.Action = audit.Action(action)
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &event.Fields); err != nil {
				return nil, fmt.Errorf("decode notification fields: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return events, nil
}
