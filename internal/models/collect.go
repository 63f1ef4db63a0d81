package models

// CollectResult is the per-item outcome in a POST /collect response.
// Exactly one of EventID or Errors is populated.
type CollectResult struct {
	EventID   string            `json:"event_id,omitempty"`
	Duplicate bool              `json:"duplicate,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// CollectResponse is returned by POST /collect.
//
// Batch policy: invalid items are skipped and reported in Results at their
// original index; valid siblings are still ingested. Accepted counts items
// that were stored or idempotently matched.
type CollectResponse struct {
	Accepted int             `json:"accepted"`
	Results  []CollectResult `json:"results"`
}
