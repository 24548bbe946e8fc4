package utils

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const snapshotName = "kringbot_prefs"

// SnapshotStore mirrors the serialized preference snapshot to Postgres so the
// store survives ephemeral hosting disks. Upload and Download move the same
// JSON document Save and Load produce; the mirror is best-effort and never
// fatal to the running bot.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// Snapshots is the global snapshot mirror, nil when DATABASE_URL is unset.
var Snapshots *SnapshotStore

// SetupSnapshotStore connects to Postgres and ensures the snapshot table
// exists. An empty databaseURL leaves the mirror disabled.
func SetupSnapshotStore(databaseURL string) error {
	if databaseURL == "" {
		return nil
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	// The mirror only moves one row at lifecycle edges; a small pool is
	// plenty.
	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 45 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.ConnConfig.RuntimeParams = map[string]string{
		"application_name": "kringbot",
		"timezone":         "UTC",
	}

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	conn.Release()

	query := `
		CREATE TABLE IF NOT EXISTS pref_snapshots (
			name TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`
	if _, err := pool.Exec(ctx, query); err != nil {
		pool.Close()
		return fmt.Errorf("failed to create snapshot table: %w", err)
	}

	Snapshots = &SnapshotStore{pool: pool}
	return nil
}

// CloseSnapshotStore closes the mirror's connection pool.
func CloseSnapshotStore() {
	if Snapshots != nil {
		Snapshots.pool.Close()
		Snapshots = nil
	}
}

// Upload copies the local snapshot file at path into Postgres.
func (ss *SnapshotStore) Upload(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot file: %w", err)
	}

	query := `
		INSERT INTO pref_snapshots (name, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET data = $2, updated_at = $3`
	if _, err := ss.pool.Exec(context.Background(), query, snapshotName, data, time.Now()); err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}
	return nil
}

// Download copies the remote snapshot into the local file at path. It
// returns false with no error when no snapshot has been uploaded yet.
func (ss *SnapshotStore) Download(path string) (bool, error) {
	var data []byte
	query := `SELECT data FROM pref_snapshots WHERE name = $1`
	err := ss.pool.QueryRow(context.Background(), query, snapshotName).Scan(&data)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to download snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return true, nil
}
