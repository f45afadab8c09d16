package authreq

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const requestSchema = `
CREATE TABLE IF NOT EXISTS authorization_requests (
	id                 TEXT PRIMARY KEY,
	identity_anchor    TEXT NOT NULL,
	device_info        TEXT NOT NULL,
	geo                TEXT,
	status             TEXT NOT NULL,
	created_at         TIMESTAMP NOT NULL,
	responded_at       TIMESTAMP,
	approver_device_id TEXT,
	approver_token     TEXT
);
CREATE INDEX IF NOT EXISTS idx_requests_status_created
	ON authorization_requests (status, created_at);
`

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the requests table if needed.
func NewSQLiteStore(db *sql.DB) (Store, error) {
	if _, err := db.Exec(requestSchema); err != nil {
		return nil, fmt.Errorf("failed to create requests table: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

// OpenDB opens the sqlite database at path with the settings the stores need.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The driver serializes writes; one writer connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return db, nil
}

func (s *sqliteStore) Insert(ctx context.Context, req *Request) error {
	deviceJSON, err := json.Marshal(req.Device)
	if err != nil {
		return err
	}
	var geoJSON []byte
	if req.Geo != nil {
		if geoJSON, err = json.Marshal(req.Geo); err != nil {
			return err
		}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO authorization_requests
			(id, identity_anchor, device_info, geo, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		req.ID, req.IdentityAnchor, string(deviceJSON), nullableString(geoJSON),
		string(req.Status), req.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, identity_anchor, device_info, geo, status,
		       created_at, responded_at, approver_device_id, approver_token
		FROM authorization_requests WHERE id = ?`, id)

	var req Request
	var deviceJSON string
	var geoJSON, approverDevice, approverToken sql.NullString
	var respondedAt sql.NullTime
	err := row.Scan(&req.ID, &req.IdentityAnchor, &deviceJSON, &geoJSON,
		(*string)(&req.Status), &req.CreatedAt, &respondedAt, &approverDevice, &approverToken)
	if err == sql.ErrNoRows {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}

	if err := json.Unmarshal([]byte(deviceJSON), &req.Device); err != nil {
		return nil, fmt.Errorf("corrupt device info on request %s: %w", id, err)
	}
	if geoJSON.Valid && geoJSON.String != "" {
		var geo Geo
		if err := json.Unmarshal([]byte(geoJSON.String), &geo); err != nil {
			return nil, fmt.Errorf("corrupt geo on request %s: %w", id, err)
		}
		req.Geo = &geo
	}
	if respondedAt.Valid {
		req.RespondedAt = respondedAt.Time
	}
	req.ApproverDeviceID = approverDevice.String
	req.ApproverToken = approverToken.String
	return &req, nil
}

func (s *sqliteStore) ResolveIfPending(ctx context.Context, id string, status Status, approverDeviceID, approverToken string, respondedAt time.Time) error {
	// The WHERE status guard makes the terminal write conditional: of two
	// concurrent resolvers exactly one sees an affected row.
	res, err := s.db.ExecContext(ctx, `
		UPDATE authorization_requests
		SET status = ?, responded_at = ?, approver_device_id = ?, approver_token = ?
		WHERE id = ? AND status = ?`,
		string(status), respondedAt.UTC(), approverDeviceID, approverToken,
		id, string(StatusPending))
	if err != nil {
		return fmt.Errorf("failed to resolve request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ErrNotPending
}

func (s *sqliteStore) ExpireOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM authorization_requests
		WHERE status = ? AND created_at < ?`,
		string(StatusPending), cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list stale requests: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var expired []string
	for _, id := range ids {
		// Per-row conditional update: a resolve that lands between the list
		// and the sweep wins, the sweep skips that row.
		err := s.ResolveIfPending(ctx, id, StatusExpired, "", "", time.Now())
		if err == ErrNotPending || err == ErrRequestNotFound {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired = append(expired, id)
	}
	return expired, nil
}

func nullableString(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
