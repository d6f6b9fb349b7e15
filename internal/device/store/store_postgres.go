package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modzero/internal/device"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	"modzero/pkg/platform/sentinel"
)

// PostgresStore persists devices and their checkpoint history.
//
// Schema:
//
//	CREATE TABLE devices (
//	    id UUID PRIMARY KEY,
//	    user_id UUID NOT NULL,
//	    name TEXT NOT NULL,
//	    fingerprint TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE posture_checkpoints (
//	    id BIGSERIAL PRIMARY KEY,
//	    device_id UUID NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
//	    checkpoint TEXT NOT NULL,
//	    status TEXT NOT NULL,
//	    recorded_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX posture_checkpoints_device_idx ON posture_checkpoints (device_id, checkpoint, recorded_at DESC);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, d *device.Device) error {
	query := `
		INSERT INTO devices (id, user_id, name, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		d.ID.String(), d.UserID.String(), d.Name, d.Fingerprint, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert device rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, deviceID id.DeviceID) (*device.Device, error) {
	query := `SELECT id, user_id, name, fingerprint, created_at FROM devices WHERE id = $1`
	d, err := scanDevice(s.db.QueryRowContext(ctx, query, deviceID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find device: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*device.Device, error) {
	query := `SELECT id, user_id, name, fingerprint, created_at FROM devices WHERE user_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []*device.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return devices, nil
}

func (s *PostgresStore) Delete(ctx context.Context, deviceID id.DeviceID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, deviceID.String())
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete device rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendCheckpoint(ctx context.Context, cp *device.PostureCheckpoint) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM devices WHERE id = $1)`, cp.DeviceID.String()).Scan(&exists); err != nil {
		return fmt.Errorf("check device exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}

	query := `
		INSERT INTO posture_checkpoints (device_id, checkpoint, status, recorded_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, cp.DeviceID.String(), cp.Checkpoint, string(cp.Status), cp.RecordedAt); err != nil {
		return fmt.Errorf("insert posture checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestCheckpoints(ctx context.Context, deviceID id.DeviceID) ([]trust.CheckpointResult, error) {
	query := `
		SELECT DISTINCT ON (checkpoint) checkpoint, status
		FROM posture_checkpoints
		WHERE device_id = $1
		ORDER BY checkpoint, recorded_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, deviceID.String())
	if err != nil {
		return nil, fmt.Errorf("query latest checkpoints: %w", err)
	}
	defer rows.Close()

	var results []trust.CheckpointResult
	for rows.Next() {
		var checkpoint, status string
		if err := rows.Scan(&checkpoint, &status); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		results = append(results, trust.CheckpointResult{
			Checkpoint: checkpoint,
			Status:     trust.CheckpointStatus(status),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return results, nil
}

type deviceRow interface {
	Scan(dest ...any) error
}

func scanDevice(row deviceRow) (*device.Device, error) {
	var d device.Device
	var rawID, rawUser string
	if err := row.Scan(&rawID, &rawUser, &d.Name, &d.Fingerprint, &d.CreatedAt); err != nil {
		return nil, err
	}

	deviceID, err := id.ParseDeviceID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse device id: %w", err)
	}
	userID, err := id.ParseUserID(rawUser)
	if err != nil {
		return nil, fmt.Errorf("parse device owner id: %w", err)
	}
	d.ID = deviceID
	d.UserID = userID
	return &d, nil
}
