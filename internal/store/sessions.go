package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/homesignal/tracker/internal/models"
)

// sessionColumns is the scan list shared by every session query.
const sessionColumns = `
	id, session_id,
	COALESCE(client_id, ''), COALESCE(site_key, ''),
	COALESCE(user_agent, ''), COALESCE(device_info, ''),
	COALESCE(ip_address, ''), COALESCE(location_data::text, ''),
	COALESCE(user_external_id, ''), COALESCE(user_email, ''),
	COALESCE(user_name, ''),
	first_seen, last_seen`

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(
		&s.ID, &s.SessionID,
		&s.ClientID, &s.SiteKey,
		&s.UserAgent, &s.DeviceInfo,
		&s.IPAddress, &s.LocationData,
		&s.UserExternalID, &s.UserEmail,
		&s.UserName,
		&s.FirstSeen, &s.LastSeen,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// InsertSession creates the session row, relying on the session_id unique
// constraint for concurrent-creation safety.
//
// RETURNING produces a row only when this call created the session; a
// losing concurrent creator gets pgx.ErrNoRows and is reported as
// created=false so the resolver retries as a find.
func (p *PostgresStore) InsertSession(ctx context.Context, s *models.Session) (bool, error) {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO sessions (
			session_id, client_id, site_key, user_agent, device_info,
			ip_address, user_external_id, user_email, user_name
		)
		VALUES (
			$1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), NULLIF($5,''),
			NULLIF($6,''), NULLIF($7,''), NULLIF($8,''), NULLIF($9,'')
		)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id, first_seen, last_seen
	`, s.SessionID, s.ClientID, s.SiteKey, s.UserAgent, s.DeviceInfo,
		s.IPAddress, s.UserExternalID, s.UserEmail, s.UserName,
	).Scan(&s.ID, &s.FirstSeen, &s.LastSeen)

	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

// FindSession returns the session for a client-supplied session_id, or
// nil, nil when unknown.
func (p *PostgresStore) FindSession(ctx context.Context, sessionID string) (*models.Session, error) {
	s, err := scanSession(p.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// GetSessionByID returns a session by primary key, or nil, nil when gone.
func (p *PostgresStore) GetSessionByID(ctx context.Context, id int64) (*models.Session, error) {
	s, err := scanSession(p.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// SaveSession persists the merged mutable attributes and bumps last_seen to
// current server time. first_seen and location_data are never written here.
func (p *PostgresStore) SaveSession(ctx context.Context, s *models.Session) error {
	return p.pool.QueryRow(ctx, `
		UPDATE sessions SET
			client_id        = NULLIF($2,''),
			site_key         = NULLIF($3,''),
			user_agent       = NULLIF($4,''),
			device_info      = NULLIF($5,''),
			ip_address       = NULLIF($6,''),
			user_external_id = NULLIF($7,''),
			user_email       = NULLIF($8,''),
			user_name        = NULLIF($9,''),
			last_seen        = now()
		WHERE id = $1
		RETURNING last_seen
	`, s.ID, s.ClientID, s.SiteKey, s.UserAgent, s.DeviceInfo,
		s.IPAddress, s.UserExternalID, s.UserEmail, s.UserName,
	).Scan(&s.LastSeen)
}

// SetSessionLocation stores the enrichment result. The WHERE guard keeps
// the write idempotent even under concurrent enrichment attempts.
func (p *PostgresStore) SetSessionLocation(ctx context.Context, sessionID int64, location []byte) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE sessions SET location_data = $2
		WHERE id = $1 AND location_data IS NULL
	`, sessionID, location)
	return err
}
