// Package enrich implements the asynchronous post-write enrichment hook:
// lead address canonicalization and session GeoIP lookup. Both steps are
// individually idempotent and best-effort; a failure here never affects the
// durability of the event that triggered it.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/homesignal/tracker/internal/models"
)

// ErrEventNotFound is returned when the event reference is unknown; the
// external scheduler treats it as a permanent failure, not a retry.
var ErrEventNotFound = errors.New("event not found")

// Store is the persistence surface enrichment needs: targeted reads plus
// two narrow writes, so re-runs touch nothing that is already set.
type Store interface {
	// FindEventByEventID returns the core columns of an event (id, session
	// and lead references); nil, nil when unknown.
	FindEventByEventID(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	GetSessionByID(ctx context.Context, id int64) (*models.Session, error)
	GetLeadByID(ctx context.Context, id int64) (*models.Lead, error)
	SetLeadAddress(ctx context.Context, leadID int64, address string) error
	SetSessionLocation(ctx context.Context, sessionID int64, location []byte) error
}

// GeoLookup resolves an IP address to location data, returning nil when it
// can't. Satisfied by *geoip.Reader, including a nil one (geo disabled).
type GeoLookup interface {
	Lookup(ip string) *models.LocationData
}

// Enricher runs the enrichment steps against injected, explicitly-lifetimed
// dependencies. A nil geo reader short-circuits the geo step instead of
// crashing; the canonicalizer defaults to CanonicalAddress.
type Enricher struct {
	store   Store
	geo     GeoLookup
	canon   AddressCanonicalizer
	log     *logrus.Logger
	metrics *Metrics
}

func NewEnricher(store Store, geo GeoLookup, log *logrus.Logger, metrics *Metrics) *Enricher {
	return &Enricher{
		store:   store,
		geo:     geo,
		canon:   CanonicalAddress,
		log:     log,
		metrics: metrics,
	}
}

// Enrich performs both enrichment steps for a persisted event. Invoked
// at-least-once by the external scheduler and once (fire-and-forget) after
// each successful write, so every step checks its precondition before
// touching anything.
//
// It returns an error only when the event reference cannot be loaded; step
// failures are logged and swallowed, leaving the precondition unset so a
// later attempt can retry.
func (e *Enricher) Enrich(ctx context.Context, eventID uuid.UUID) error {
	event, err := e.store.FindEventByEventID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load event %s: %w", eventID, err)
	}
	if event == nil {
		return ErrEventNotFound
	}

	e.canonicalizeLeadAddress(ctx, event)
	e.locateSession(ctx, event)
	return nil
}

// canonicalizeLeadAddress replaces the lead's property_address with its
// canonical form. No-op when there is no lead, no address, or the address
// is already canonical.
func (e *Enricher) canonicalizeLeadAddress(ctx context.Context, event *models.Event) {
	if event.LeadPK == nil {
		return
	}
	lead, err := e.store.GetLeadByID(ctx, *event.LeadPK)
	if err != nil || lead == nil {
		e.stepFailed("address", event, err)
		return
	}
	if lead.PropertyAddress == "" {
		return
	}

	canonical := e.canon(lead.PropertyAddress)
	if canonical == "" || canonical == lead.PropertyAddress {
		e.metrics.observe("address", "noop")
		return
	}
	if err := e.store.SetLeadAddress(ctx, lead.ID, canonical); err != nil {
		e.stepFailed("address", event, err)
		return
	}
	e.metrics.observe("address", "ok")
}

// locateSession stores the GeoIP result on the session. No-op when
// location_data is already set, no IP is known, or no geo database is
// loaded.
func (e *Enricher) locateSession(ctx context.Context, event *models.Event) {
	session, err := e.store.GetSessionByID(ctx, event.SessionPK)
	if err != nil || session == nil {
		e.stepFailed("geoip", event, err)
		return
	}
	if session.LocationData != "" || session.IPAddress == "" {
		return
	}

	var loc *models.LocationData
	if e.geo != nil {
		loc = e.geo.Lookup(session.IPAddress)
	}
	if loc == nil {
		e.metrics.observe("geoip", "noop")
		return
	}

	payload, err := json.Marshal(loc)
	if err != nil {
		e.stepFailed("geoip", event, err)
		return
	}
	if err := e.store.SetSessionLocation(ctx, session.ID, payload); err != nil {
		e.stepFailed("geoip", event, err)
		return
	}
	e.metrics.observe("geoip", "ok")
}

func (e *Enricher) stepFailed(step string, event *models.Event, err error) {
	e.metrics.observe(step, "failed")
	if e.log == nil {
		return
	}
	entry := e.log.WithFields(logrus.Fields{"step": step, "event_id": event.EventID})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn("enrichment step failed, will retry on next attempt")
}
