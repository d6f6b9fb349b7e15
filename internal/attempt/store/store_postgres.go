package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modzero/internal/attempt"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	"modzero/pkg/platform/sentinel"
	"modzero/pkg/platform/tx"
)

// PostgresStore persists attempt records. The attempt row and its factor
// breakdown rows are written in one transaction.
//
// Schema:
//
//	CREATE TABLE access_attempts (
//	    id UUID PRIMARY KEY,
//	    user_id UUID NOT NULL,
//	    device_id UUID,
//	    ip TEXT NOT NULL,
//	    ts TIMESTAMPTZ NOT NULL,
//	    decision TEXT NOT NULL,
//	    reason TEXT NOT NULL,
//	    total_score DOUBLE PRECISION NOT NULL,
//	    policy_id UUID
//	);
//	CREATE INDEX access_attempts_user_idx ON access_attempts (user_id, ts DESC);
//
//	CREATE TABLE attempt_details (
//	    attempt_id UUID NOT NULL REFERENCES access_attempts(id) ON DELETE CASCADE,
//	    factor TEXT NOT NULL,
//	    contribution DOUBLE PRECISION NOT NULL,
//	    position INT NOT NULL,
//	    PRIMARY KEY (attempt_id, factor)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) execer {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, a *attempt.AccessAttempt) error {
	return tx.Execute(ctx, s.db, func(ctx context.Context) error {
		run := s.execer(ctx)

		var deviceID, policyID any
		if a.DeviceID != nil {
			deviceID = a.DeviceID.String()
		}
		if a.PolicyID != nil {
			policyID = a.PolicyID.String()
		}

		query := `
			INSERT INTO access_attempts (id, user_id, device_id, ip, ts, decision, reason, total_score, policy_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		if _, err := run.ExecContext(ctx, query,
			a.ID.String(), a.UserID.String(), deviceID, a.IP, a.Timestamp,
			string(a.Decision), a.Reason, a.TotalScore, policyID,
		); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}

		for i, detail := range a.Details {
			if _, err := run.ExecContext(ctx,
				`INSERT INTO attempt_details (attempt_id, factor, contribution, position) VALUES ($1, $2, $3, $4)`,
				a.ID.String(), string(detail.FactorName), detail.Contribution, i,
			); err != nil {
				return fmt.Errorf("insert attempt detail: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, attemptID id.AttemptID) (*attempt.AccessAttempt, error) {
	query := `
		SELECT id, user_id, device_id, ip, ts, decision, reason, total_score, policy_id
		FROM access_attempts
		WHERE id = $1
	`
	a, err := scanAttempt(s.db.QueryRowContext(ctx, query, attemptID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	if err := s.loadDetails(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*attempt.AccessAttempt, error) {
	query := `
		SELECT id, user_id, device_id, ip, ts, decision, reason, total_score, policy_id
		FROM access_attempts
		WHERE user_id = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2
	`
	return s.queryAttempts(ctx, query, userID.String(), limit)
}

func (s *PostgresStore) ListAll(ctx context.Context, limit int) ([]*attempt.AccessAttempt, error) {
	query := `
		SELECT id, user_id, device_id, ip, ts, decision, reason, total_score, policy_id
		FROM access_attempts
		ORDER BY ts DESC, id DESC
		LIMIT $1
	`
	return s.queryAttempts(ctx, query, limit)
}

func (s *PostgresStore) queryAttempts(ctx context.Context, query string, args ...any) ([]*attempt.AccessAttempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*attempt.AccessAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}

	for _, a := range attempts {
		if err := s.loadDetails(ctx, a); err != nil {
			return nil, err
		}
	}
	return attempts, nil
}

func (s *PostgresStore) loadDetails(ctx context.Context, a *attempt.AccessAttempt) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT factor, contribution FROM attempt_details WHERE attempt_id = $1 ORDER BY position`,
		a.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("query attempt details: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var factor string
		var contribution float64
		if err := rows.Scan(&factor, &contribution); err != nil {
			return fmt.Errorf("scan attempt detail: %w", err)
		}
		a.Details = append(a.Details, trust.ScoreDetail{
			FactorName:   trust.FactorName(factor),
			Contribution: contribution,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate attempt details: %w", err)
	}
	return nil
}

type attemptRow interface {
	Scan(dest ...any) error
}

func scanAttempt(row attemptRow) (*attempt.AccessAttempt, error) {
	var a attempt.AccessAttempt
	var rawID, rawUser, decision string
	var rawDevice, rawPolicy sql.NullString
	if err := row.Scan(&rawID, &rawUser, &rawDevice, &a.IP, &a.Timestamp, &decision, &a.Reason, &a.TotalScore, &rawPolicy); err != nil {
		return nil, err
	}

	attemptID, err := id.ParseAttemptID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse attempt id: %w", err)
	}
	userID, err := id.ParseUserID(rawUser)
	if err != nil {
		return nil, fmt.Errorf("parse attempt user id: %w", err)
	}
	a.ID = attemptID
	a.UserID = userID
	a.Decision = trust.Decision(decision)

	if rawDevice.Valid {
		deviceID, err := id.ParseDeviceID(rawDevice.String)
		if err != nil {
			return nil, fmt.Errorf("parse attempt device id: %w", err)
		}
		a.DeviceID = &deviceID
	}
	if rawPolicy.Valid {
		policyID, err := id.ParsePolicyID(rawPolicy.String)
		if err != nil {
			return nil, fmt.Errorf("parse attempt policy id: %w", err)
		}
		a.PolicyID = &policyID
	}
	return &a, nil
}
