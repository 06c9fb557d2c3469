package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"subcue/internal/subtitle"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current database schema version. Bump when the DDL
// changes. The snapshot payload itself carries no version tag.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Primary is the SQLite-backed durable tier.
type Primary struct {
	db   *sql.DB
	path string
}

// ProjectInfo summarizes a stored project for listings.
type ProjectInfo struct {
	JobID     string    `json:"job_id"`
	Title     string    `json:"title"`
	CueCount  int       `json:"cue_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OpenPrimary initializes or connects to the project database in stateDir.
func OpenPrimary(stateDir string) (*Primary, error) {
	dbPath := filepath.Join(stateDir, "projects.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	p := &Primary{db: db, path: dbPath}
	if err := p.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// Close closes the underlying database connection.
func (p *Primary) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Path returns the database file location.
func (p *Primary) Path() string {
	return p.path
}

func (p *Primary) initSchema(ctx context.Context) error {
	var tableExists int
	err := p.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return p.createSchema(ctx)
	}

	var version int
	err = p.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, p.path)
	}
	return nil
}

func (p *Primary) createSchema(ctx context.Context) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Put upserts the snapshot payload for id.
func (p *Primary) Put(ctx context.Context, id string, snap subtitle.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return Wrap(ErrWrite, "primary", "marshal snapshot", err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	err = retryOnBusy(ctx, func() error {
		_, execErr := p.db.ExecContext(ctx,
			`INSERT INTO projects (job_id, title, cue_count, payload, updated_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(job_id) DO UPDATE SET
                 title = excluded.title,
                 cue_count = excluded.cue_count,
                 payload = excluded.payload,
                 updated_at = excluded.updated_at`,
			id, snap.Meta.Title, len(snap.Cues), string(payload), timestamp,
		)
		return execErr
	})
	if err != nil {
		return Wrap(ErrWrite, "primary", "upsert project", err)
	}
	return nil
}

// Get fetches the snapshot for id. Returns ErrNotFound on a miss.
func (p *Primary) Get(ctx context.Context, id string) (subtitle.Snapshot, error) {
	var payload string
	err := p.db.QueryRowContext(ctx,
		`SELECT payload FROM projects WHERE job_id = ?`, id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return subtitle.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return subtitle.Snapshot{}, Wrap(ErrRead, "primary", "get project", err)
	}

	var snap subtitle.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return subtitle.Snapshot{}, Wrap(ErrRead, "primary", "decode payload", err)
	}
	return snap, nil
}

// Delete removes the stored project. Missing rows are not an error.
func (p *Primary) Delete(ctx context.Context, id string) error {
	err := retryOnBusy(ctx, func() error {
		_, execErr := p.db.ExecContext(ctx, `DELETE FROM projects WHERE job_id = ?`, id)
		return execErr
	})
	if err != nil {
		return Wrap(ErrWrite, "primary", "delete project", err)
	}
	return nil
}

// List returns stored project summaries, most recently updated first.
func (p *Primary) List(ctx context.Context) ([]ProjectInfo, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT job_id, title, cue_count, updated_at FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, Wrap(ErrRead, "primary", "list projects", err)
	}
	defer rows.Close()

	var out []ProjectInfo
	for rows.Next() {
		var info ProjectInfo
		var updated string
		if err := rows.Scan(&info.JobID, &info.Title, &info.CueCount, &updated); err != nil {
			return nil, Wrap(ErrRead, "primary", "scan project row", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, updated); parseErr == nil {
			info.UpdatedAt = ts
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, Wrap(ErrRead, "primary", "iterate projects", err)
	}
	return out, nil
}
