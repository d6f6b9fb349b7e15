package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modzero/internal/auth"
	id "modzero/pkg/domain"
	"modzero/pkg/platform/pgerr"
	"modzero/pkg/platform/sentinel"
)

// PostgresStore persists user accounts in PostgreSQL. Emails are stored
// lowercased; the unique index enforces one account per email.
//
// Schema:
//
//	CREATE TABLE users (
//	    id UUID PRIMARY KEY,
//	    email TEXT NOT NULL UNIQUE,
//	    password_hash BYTEA NOT NULL,
//	    role TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, email, password_hash, role, created_at`

func (s *PostgresStore) Create(ctx context.Context, u *auth.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID.String(), u.Email, u.PasswordHash, string(u.Role), u.CreatedAt,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, userID.String()))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = LOWER($1)`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID.String())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type userRow interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanUser(row userRow) (*auth.User, error) {
	var (
		u       auth.User
		rawID   string
		rawRole string
	)
	err := row.Scan(&rawID, &u.Email, &u.PasswordHash, &rawRole, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.ID, err = id.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	u.Role = auth.Role(rawRole)
	return &u, nil
}
