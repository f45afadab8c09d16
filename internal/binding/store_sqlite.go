package binding

import (
	"database/sql"
	"fmt"
	"time"
)

const bindingSchema = `
CREATE TABLE IF NOT EXISTS device_bindings (
	license_id         TEXT NOT NULL,
	device_fingerprint TEXT NOT NULL,
	bound_at           TIMESTAMP NOT NULL,
	PRIMARY KEY (license_id, device_fingerprint)
);
`

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the bindings table if needed and returns a store
// backed by it. The conditional insert keeps count-then-insert atomic at the
// database level.
func NewSQLiteStore(db *sql.DB) (Store, error) {
	if _, err := db.Exec(bindingSchema); err != nil {
		return nil, fmt.Errorf("failed to create bindings table: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Link(licenseID, fingerprint string, max int, now time.Time) error {
	// Single statement: insert only when the slot is free and the license is
	// below its allowance. Zero rows affected is then either "already
	// linked" (fine) or "full" (rejected).
	res, err := s.db.Exec(`
		INSERT INTO device_bindings (license_id, device_fingerprint, bound_at)
		SELECT ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM device_bindings
			WHERE license_id = ? AND device_fingerprint = ?
		)
		AND (SELECT COUNT(*) FROM device_bindings WHERE license_id = ?) < ?`,
		licenseID, fingerprint, now.UTC(), licenseID, fingerprint, licenseID, max)
	if err != nil {
		return fmt.Errorf("failed to link device: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	linked, err := s.IsLinked(licenseID, fingerprint)
	if err != nil {
		return err
	}
	if linked {
		return nil
	}
	return ErrDeviceLimitReached
}

func (s *sqliteStore) IsLinked(licenseID, fingerprint string) (bool, error) {
	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM device_bindings
		WHERE license_id = ? AND device_fingerprint = ?`,
		licenseID, fingerprint).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query binding: %w", err)
	}
	return true, nil
}

func (s *sqliteStore) Unlink(licenseID, fingerprint string) error {
	_, err := s.db.Exec(`
		DELETE FROM device_bindings
		WHERE license_id = ? AND device_fingerprint = ?`,
		licenseID, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to unlink device: %w", err)
	}
	return nil
}

func (s *sqliteStore) Count(licenseID string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM device_bindings WHERE license_id = ?`,
		licenseID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bindings: %w", err)
	}
	return count, nil
}
