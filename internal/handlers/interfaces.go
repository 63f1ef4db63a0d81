package handlers

import (
	"context"

	"github.com/google/uuid"
)

// EventEnricher is the enrichment operation exposed to the external
// scheduler. Implemented by enrich.Enricher; stubbed in tests.
type EventEnricher interface {
	Enrich(ctx context.Context, eventID uuid.UUID) error
}
