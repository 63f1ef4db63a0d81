package enrich

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AsyncDispatcher runs enrichment on a background goroutine per event,
// detached from the request/response cycle so a slow geo or address lookup
// never delays the beacon response. Failures are logged; the external
// scheduler re-invokes Enrich for anything left unenriched.
type AsyncDispatcher struct {
	enricher *Enricher
	timeout  time.Duration
	log      *logrus.Logger
}

func NewAsyncDispatcher(enricher *Enricher, log *logrus.Logger) *AsyncDispatcher {
	return &AsyncDispatcher{
		enricher: enricher,
		timeout:  30 * time.Second,
		log:      log,
	}
}

// Dispatch fires enrichment for one event and returns immediately.
func (d *AsyncDispatcher) Dispatch(eventID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.enricher.Enrich(ctx, eventID); err != nil && d.log != nil {
			d.log.WithError(err).WithField("event_id", eventID).Warn("enrichment dispatch failed")
		}
	}()
}
