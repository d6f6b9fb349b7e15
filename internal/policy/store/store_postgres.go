package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"modzero/internal/policy"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	"modzero/pkg/platform/pgerr"
	"modzero/pkg/platform/sentinel"
)

// PostgresStore persists policies in PostgreSQL. Factor weights are stored
// as a JSONB document alongside the scalar columns.
//
// Schema:
//
//	CREATE TABLE trust_policies (
//	    id UUID PRIMARY KEY,
//	    name TEXT NOT NULL UNIQUE,
//	    owner_id UUID NOT NULL,
//	    description TEXT NOT NULL DEFAULT '',
//	    threshold DOUBLE PRECISION NOT NULL,
//	    weights JSONB NOT NULL DEFAULT '{}',
//	    active BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const policyColumns = `id, name, owner_id, description, threshold, weights, active, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *policy.Policy) error {
	weights, err := json.Marshal(p.Weights)
	if err != nil {
		return fmt.Errorf("marshal policy weights: %w", err)
	}

	query := `
		INSERT INTO trust_policies (` + policyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ID.String(), p.Name, p.OwnerID.String(), p.Description,
		p.Threshold, weights, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, policyID id.PolicyID) (*policy.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM trust_policies WHERE id = $1`
	p, err := scanPolicy(s.db.QueryRowContext(ctx, query, policyID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find policy by id: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*policy.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM trust_policies WHERE LOWER(name) = LOWER($1)`
	p, err := scanPolicy(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find policy by name: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*policy.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM trust_policies ORDER BY created_at, id`
	return s.queryPolicies(ctx, query)
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*policy.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM trust_policies WHERE active ORDER BY created_at, id`
	return s.queryPolicies(ctx, query)
}

func (s *PostgresStore) Update(ctx context.Context, p *policy.Policy) error {
	weights, err := json.Marshal(p.Weights)
	if err != nil {
		return fmt.Errorf("marshal policy weights: %w", err)
	}

	query := `
		UPDATE trust_policies
		SET description = $2, threshold = $3, weights = $4, active = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		p.ID.String(), p.Description, p.Threshold, weights, p.Active, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update policy rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, policyID id.PolicyID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM trust_policies WHERE id = $1`, policyID.String())
	if err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete policy rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryPolicies(ctx context.Context, query string, args ...any) ([]*policy.Policy, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}
	defer rows.Close()

	var policies []*policy.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return policies, nil
}

type policyRow interface {
	Scan(dest ...any) error
}

func scanPolicy(row policyRow) (*policy.Policy, error) {
	var p policy.Policy
	var rawID, rawOwner string
	var weights []byte
	if err := row.Scan(&rawID, &p.Name, &rawOwner, &p.Description, &p.Threshold, &weights, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	policyID, err := id.ParsePolicyID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse policy id: %w", err)
	}
	ownerID, err := id.ParseUserID(rawOwner)
	if err != nil {
		return nil, fmt.Errorf("parse policy owner id: %w", err)
	}
	p.ID = policyID
	p.OwnerID = ownerID

	p.Weights = make(map[trust.FactorName]float64)
	if len(weights) > 0 {
		if err := json.Unmarshal(weights, &p.Weights); err != nil {
			return nil, fmt.Errorf("unmarshal policy weights: %w", err)
		}
	}
	return &p, nil
}
