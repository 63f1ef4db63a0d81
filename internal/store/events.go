package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/homesignal/tracker/internal/models"
)

// InsertEvent persists an event and returns created=false when it is a
// duplicate beacon (same event_id).
//
// Idempotency is enforced by the unique constraint on event_id, which is
// compatible with retries and at-least-once delivery: RETURNING produces a
// row only for a fresh insert, so a duplicate surfaces as pgx.ErrNoRows and
// is mapped to success.
func (p *PostgresStore) InsertEvent(ctx context.Context, e *models.Event) (bool, error) {
	viewport, err := jsonArg(e.Viewport)
	if err != nil {
		return false, err
	}
	screen, err := jsonArg(e.Screen)
	if err != nil {
		return false, err
	}
	eventData, err := jsonArg(e.EventData)
	if err != nil {
		return false, err
	}

	err = p.pool.QueryRow(ctx, `
		INSERT INTO events (
			event_id, schema_version, site_key, session_pk, lead_pk, event_type,
			url, page_title, referrer, language, tz_offset_min, viewport, screen,
			utm_source, utm_medium, utm_campaign, utm_term, utm_content,
			event_data, client_ts
		)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			NULLIF($7,''), NULLIF($8,''), NULLIF($9,''), NULLIF($10,''), $11, $12, $13,
			NULLIF($14,''), NULLIF($15,''), NULLIF($16,''), NULLIF($17,''), NULLIF($18,''),
			$19, $20
		)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id, created_at
	`, e.EventID, e.SchemaVersion, e.SiteKey, e.SessionPK, e.LeadPK, e.EventType,
		e.URL, e.PageTitle, e.Referrer, e.Language, e.TZOffsetMin, viewport, screen,
		e.UTMSource, e.UTMMedium, e.UTMCampaign, e.UTMTerm, e.UTMContent,
		eventData, e.ClientTS,
	).Scan(&e.ID, &e.CreatedAt)

	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

// FindEventByEventID loads the core columns an enrichment run needs (row
// id plus session and lead references); nil, nil when the event_id is
// unknown.
func (p *PostgresStore) FindEventByEventID(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	var e models.Event
	err := p.pool.QueryRow(ctx, `
		SELECT id, event_id, schema_version, site_key, session_pk, lead_pk,
		       event_type, created_at
		FROM events
		WHERE event_id = $1
	`, eventID).Scan(
		&e.ID, &e.EventID, &e.SchemaVersion, &e.SiteKey, &e.SessionPK, &e.LeadPK,
		&e.EventType, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
