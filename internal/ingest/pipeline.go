package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store is the full persistence surface of the ingestion pipeline,
// implemented by the Postgres store.
type Store interface {
	SessionStore
	LeadStore
	EventStore
}

// EnrichDispatcher hands a freshly written event to the asynchronous
// enrichment hook. Dispatch must not block the ingestion path.
type EnrichDispatcher interface {
	Dispatch(eventID uuid.UUID)
}

// Result is the per-item outcome of an ingestion attempt. Err is either a
// *ValidationError (item skipped) or a storage failure (item failed hard).
type Result struct {
	EventID   uuid.UUID
	Duplicate bool
	Err       error
}

// Pipeline is the ingestion and identity-resolution core: normalize the
// payload, resolve the owning Session and optional Lead independently, bind
// both into a durable Event, then fire enrichment for newly created rows.
type Pipeline struct {
	sessions *SessionResolver
	leads    *LeadResolver
	writer   *EventWriter
	dispatch EnrichDispatcher
	log      *logrus.Logger
	metrics  *Metrics
}

func NewPipeline(store Store, dispatch EnrichDispatcher, log *logrus.Logger, metrics *Metrics) *Pipeline {
	return &Pipeline{
		sessions: NewSessionResolver(store, log),
		leads:    NewLeadResolver(store, log),
		writer:   NewEventWriter(store),
		dispatch: dispatch,
		log:      log,
		metrics:  metrics,
	}
}

// IngestBatch accepts a single payload object or an array of them (beacon
// batch) and processes each item independently: one bad item never fails
// its siblings. Results keep the input order.
func (p *Pipeline) IngestBatch(ctx context.Context, raw []byte, req RequestContext) []Result {
	items, verr := splitBatch(raw)
	if verr != nil {
		p.metrics.observe("", StatusInvalid)
		return []Result{{Err: verr}}
	}

	results := make([]Result, len(items))
	for i, item := range items {
		results[i] = p.IngestOne(ctx, item, req)
	}
	return results
}

// IngestOne runs the full pipeline for a single payload item.
func (p *Pipeline) IngestOne(ctx context.Context, raw json.RawMessage, req RequestContext) Result {
	ev, verr := Normalize(raw)
	if verr != nil {
		p.metrics.observe("", StatusInvalid)
		return Result{Err: verr}
	}

	session, err := p.sessions.Resolve(ctx, ev, req)
	if err != nil {
		p.metrics.observe(ev.EventType, StatusFailed)
		return Result{EventID: ev.EventID, Err: err}
	}

	lead, err := p.leads.Resolve(ctx, ev.Lead)
	if err != nil {
		p.metrics.observe(ev.EventType, StatusFailed)
		return Result{EventID: ev.EventID, Err: err}
	}

	event, created, err := p.writer.Write(ctx, ev, session, lead)
	if err != nil {
		p.metrics.observe(ev.EventType, StatusFailed)
		return Result{EventID: ev.EventID, Err: err}
	}

	if !created {
		// Idempotent duplicate: success, no second row, no re-enrichment.
		p.metrics.observe(ev.EventType, StatusDuplicate)
		return Result{EventID: ev.EventID, Duplicate: true}
	}

	if p.dispatch != nil {
		p.dispatch.Dispatch(event.EventID)
	}
	p.metrics.observe(ev.EventType, StatusCreated)

	if p.log != nil {
		p.log.WithFields(logrus.Fields{
			"event_id":   event.EventID,
			"event_type": ev.EventType,
			"session_id": ev.SessionID,
			"has_lead":   lead != nil,
		}).Debug("event ingested")
	}
	return Result{EventID: ev.EventID}
}

// splitBatch turns the request body into individual items. A JSON array is
// a batch; anything else is treated as one item.
func splitBatch(raw []byte) ([]json.RawMessage, *ValidationError) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		verr := newValidationError()
		verr.add("payload", "empty body")
		return nil, verr
	}
	if trimmed[0] != '[' {
		return []json.RawMessage{raw}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		verr := newValidationError()
		verr.add("payload", "must be a JSON object or array of objects")
		return nil, verr
	}
	return items, nil
}

// ValidationFields returns the field error map when Err is a validation
// error, nil otherwise. Handlers use it to tell skippable items from hard
// storage failures.
func (r Result) ValidationFields() map[string]string {
	var verr *ValidationError
	if errors.As(r.Err, &verr) {
		return verr.Fields
	}
	return nil
}
