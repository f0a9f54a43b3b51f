// ABOUTME: SQLite implementation of DeviceStore using modernc.org/sqlite
// ABOUTME: Provides device persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the DeviceStore interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the devices table if it doesn't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			auth_secret TEXT NOT NULL,
			invite_code TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 0,
			is_admin INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_devices_invite_code
			ON devices(invite_code);

		CREATE INDEX IF NOT EXISTS idx_devices_enabled
			ON devices(enabled);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Ensure SQLiteStore implements DeviceStore.
var _ DeviceStore = (*SQLiteStore)(nil)

// ListEnabled returns all enabled devices.
func (s *SQLiteStore) ListEnabled(ctx context.Context) ([]*Device, error) {
	query := `
		SELECT id, name, auth_secret, invite_code, enabled, is_admin, created_at
		FROM devices
		WHERE enabled = 1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying enabled devices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var devices []*Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// Insert stores a new device record, assigning an ID if none is set.
func (s *SQLiteStore) Insert(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO devices (id, name, auth_secret, invite_code, enabled, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		d.ID,
		d.Name,
		d.AuthSecret,
		d.InviteCode,
		boolToInt(d.Enabled),
		boolToInt(d.IsAdmin),
		d.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateInvite
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	s.logger.Info("created device", "id", d.ID, "name", d.Name)
	return nil
}

// FindByInvite retrieves a device by its invite code.
func (s *SQLiteStore) FindByInvite(ctx context.Context, inviteCode string) (*Device, error) {
	query := `
		SELECT id, name, auth_secret, invite_code, enabled, is_admin, created_at
		FROM devices
		WHERE invite_code = ?
	`

	row := s.db.QueryRowContext(ctx, query, inviteCode)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateEnabled sets the enabled flag on a device. The rows-affected return
// lets concurrent enable/reject calls on the same invite code resolve to a
// single winner.
func (s *SQLiteStore) UpdateEnabled(ctx context.Context, inviteCode string, enabled bool) (int64, error) {
	query := `UPDATE devices SET enabled = ? WHERE invite_code = ?`

	result, err := s.db.ExecContext(ctx, query, boolToInt(enabled), inviteCode)
	if err != nil {
		return 0, fmt.Errorf("updating device enabled flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected > 0 {
		s.logger.Info("updated device", "invite_code", inviteCode, "enabled", enabled)
	}
	return rowsAffected, nil
}

// Delete removes a device by invite code.
func (s *SQLiteStore) Delete(ctx context.Context, inviteCode string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM devices WHERE invite_code = ?", inviteCode)
	if err != nil {
		return 0, fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected > 0 {
		s.logger.Info("deleted device", "invite_code", inviteCode)
	}
	return rowsAffected, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner abstracts sql.Row and sql.Rows for scanDevice.
type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(row scanner) (*Device, error) {
	var d Device
	var enabled, isAdmin int
	var createdAtStr string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.AuthSecret,
		&d.InviteCode,
		&enabled,
		&isAdmin,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning device: %w", err)
	}

	d.Enabled = enabled != 0
	d.IsAdmin = isAdmin != 0
	d.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	// SQLite returns "UNIQUE constraint failed" in the error message
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "unique constraint"))
}
