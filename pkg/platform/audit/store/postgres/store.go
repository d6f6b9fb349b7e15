package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "modzero/pkg/domain"
	audit "modzero/pkg/platform/audit"
	txcontext "modzero/pkg/platform/tx"
)

// Store persists audit events in PostgreSQL. Append participates in a
// caller-provided transaction when one is on the context, so an attempt
// record and its audit event commit atomically.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed audit store.
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

// Append writes an audit event row.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Always derive category from action - eventCategories map is the source of truth
	category := audit.AuditEvent(event.Action).Category()

	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	query := `
		INSERT INTO audit_events (id, category, occurred_at, user_id, subject, action, decision, reason, client_ip, request_id, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var userID any
	if !event.UserID.IsNil() {
		userID = event.UserID.String()
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		eventID.String(),
		string(category),
		timestamp,
		userID,
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.IP,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByUser returns all events recorded for a user, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	query := `
		SELECT category, occurred_at, user_id, subject, action, decision, reason, client_ip, request_id, actor_id
		FROM audit_events
		WHERE user_id = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var event audit.Event
		var category string
		var rowUserID sql.NullString
		if err := rows.Scan(&category, &event.Timestamp, &rowUserID, &event.Subject, &event.Action,
			&event.Decision, &event.Reason, &event.IP, &event.RequestID, &event.ActorID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		if rowUserID.Valid {
			parsed, err := id.ParseUserID(rowUserID.String)
			if err == nil {
				event.UserID = parsed
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
