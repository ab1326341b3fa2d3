// Package catalog tracks GOSFS volumes in Postgres: their name, backing
// device path, block count, and a mount/format event trail. The engine's
// own on-disk state (bitmap, inode table, indirection blocks) never lives
// here — catalog only remembers which volumes exist and what has happened
// to them, the same structural role the teacher's FilesystemRepository
// plays over its own domain.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosfs/server/internal/models"
	"github.com/gosfs/server/pkg/database/postgresql"
	"github.com/gosfs/server/pkg/logging"
	"github.com/gosfs/server/pkg/logging/slogext"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// EventKind labels one row of the volume_events audit trail.
type EventKind string

const (
	EventFormatted EventKind = "formatted"
	EventMounted   EventKind = "mounted"
	EventUnmounted EventKind = "unmounted"
	EventSynced    EventKind = "synced"
)

// uniqueViolation is Postgres's SQLSTATE for a unique-constraint conflict,
// the same code the teacher's create-path handlers check for.
const uniqueViolation = "23505"

// Repository is the catalog's persistence boundary: CRUD over the volumes
// table plus an append-only event log.
type Repository interface {
	Register(ctx context.Context, name, devicePath string, numBlocks int64) error
	Get(ctx context.Context, name string) (*models.VolumeInfo, error)
	List(ctx context.Context) ([]models.VolumeInfo, error)
	RecordEvent(ctx context.Context, name string, kind EventKind, detail string) error
	EnsureSchema(ctx context.Context) error
}

type repository struct {
	db postgresql.Client
}

// NewRepository returns a Repository backed by db.
func NewRepository(db postgresql.Client) Repository {
	return &repository{db: db}
}

// EnsureSchema creates the volumes/volume_events tables if they don't
// already exist. The teacher's own retrieval pack carries no migration
// tool (no golang-migrate/goose dependency anywhere in it), so catalog
// owns its schema the same ad hoc way — idempotent DDL run at startup.
func (r *repository) EnsureSchema(ctx context.Context) error {
	const op = "catalog.repository.EnsureSchema"

	db := postgresql.GetDBClient(ctx, r.db)
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS volumes (
			name         TEXT PRIMARY KEY,
			device_path  TEXT NOT NULL,
			num_blocks   BIGINT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS volume_events (
			id           BIGSERIAL PRIMARY KEY,
			volume_name  TEXT NOT NULL REFERENCES volumes(name),
			kind         TEXT NOT NULL,
			detail       TEXT NOT NULL DEFAULT '',
			occurred_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Register inserts a new catalog row for a freshly formatted volume. A
// second Register for the same name returns ErrAlreadyRegistered.
func (r *repository) Register(ctx context.Context, name, devicePath string, numBlocks int64) error {
	const op = "catalog.repository.Register"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	err := postgresql.WithTransaction(ctx, r.db, func(ctx context.Context) error {
		db := postgresql.GetDBClient(ctx, r.db)
		_, err := db.Exec(ctx, `
			INSERT INTO volumes (name, device_path, num_blocks)
			VALUES ($1, $2, $3)
		`, name, devicePath, numBlocks)
		if err != nil {
			return err
		}

		_, err = db.Exec(ctx, `
			INSERT INTO volume_events (volume_name, kind, detail)
			VALUES ($1, $2, $3)
		`, name, EventFormatted, fmt.Sprintf("device=%s blocks=%d", devicePath, numBlocks))
		return err
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrAlreadyRegistered
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyRegistered
		}
		logger.Error("failed to register volume", slogext.Err(err), "name", name)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Get returns the catalog row for name, or nil if it isn't registered.
func (r *repository) Get(ctx context.Context, name string) (*models.VolumeInfo, error) {
	const op = "catalog.repository.Get"

	db := postgresql.GetDBClient(ctx, r.db)
	var info models.VolumeInfo
	err := db.QueryRow(ctx, `
		SELECT name, device_path, num_blocks
		FROM volumes
		WHERE name = $1
	`, name).Scan(&info.Name, &info.DevicePath, &info.NumBlocks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &info, nil
}

// List returns every registered volume, ordered by name.
func (r *repository) List(ctx context.Context) ([]models.VolumeInfo, error) {
	const op = "catalog.repository.List"

	db := postgresql.GetDBClient(ctx, r.db)
	rows, err := db.Query(ctx, `
		SELECT name, device_path, num_blocks
		FROM volumes
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []models.VolumeInfo
	for rows.Next() {
		var info models.VolumeInfo
		if err := rows.Scan(&info.Name, &info.DevicePath, &info.NumBlocks); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// RecordEvent appends one audit-trail row for name. Used for mount/unmount/
// sync bookkeeping after the corresponding VFS operation has already
// succeeded — a failure to record is logged but never unwinds the VFS side
// effect, since the catalog is an audit trail, not a two-phase commit
// participant.
func (r *repository) RecordEvent(ctx context.Context, name string, kind EventKind, detail string) error {
	const op = "catalog.repository.RecordEvent"

	db := postgresql.GetDBClient(ctx, r.db)
	_, err := db.Exec(ctx, `
		INSERT INTO volume_events (volume_name, kind, detail)
		VALUES ($1, $2, $3)
	`, name, kind, detail)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
