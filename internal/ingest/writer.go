package ingest

import (
	"context"
	"fmt"

	"github.com/homesignal/tracker/internal/models"
)

// EventStore is the persistence surface the event writer needs.
type EventStore interface {
	// InsertEvent persists the event with a server-assigned created_at.
	// It returns false without error when event_id already exists
	// (idempotent duplicate).
	InsertEvent(ctx context.Context, e *models.Event) (bool, error)
}

// EventWriter assembles the final Event from the normalized record and the
// resolved session/lead references and persists it atomically.
type EventWriter struct {
	store EventStore
}

func NewEventWriter(store EventStore) *EventWriter {
	return &EventWriter{store: store}
}

// Write persists one event. event_id is the idempotency key: a retried
// beacon returns created=false and is indistinguishable from success.
func (w *EventWriter) Write(ctx context.Context, ev *NormalizedEvent, session *models.Session, lead *models.Lead) (*models.Event, bool, error) {
	e := &models.Event{
		EventID:       ev.EventID,
		SchemaVersion: ev.SchemaVersion,
		SiteKey:       ev.SiteKey,
		SessionPK:     session.ID,
		EventType:     ev.EventType,
		URL:           ev.URL,
		PageTitle:     ev.PageTitle,
		Referrer:      ev.Referrer,
		Language:      ev.Language,
		TZOffsetMin:   ev.TZOffsetMin,
		Viewport:      ev.Viewport,
		Screen:        ev.Screen,
		UTMSource:     ev.UTMSource,
		UTMMedium:     ev.UTMMedium,
		UTMCampaign:   ev.UTMCampaign,
		UTMTerm:       ev.UTMTerm,
		UTMContent:    ev.UTMContent,
		EventData:     ev.EventData,
		ClientTS:      ev.ClientTS,
	}
	if lead != nil {
		id := lead.ID
		e.LeadPK = &id
	}

	created, err := w.store.InsertEvent(ctx, e)
	if err != nil {
		return nil, false, fmt.Errorf("insert event: %w", err)
	}
	return e, created, nil
}
