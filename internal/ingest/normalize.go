package ingest

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/homesignal/tracker/internal/models"
)

// NormalizedEvent is the validated, typed form of one beacon payload.
// All string fields are trimmed; empty string means absent.
type NormalizedEvent struct {
	EventID       uuid.UUID
	SchemaVersion int
	SiteKey       string
	SessionID     string
	ClientID      string
	EventType     string

	URL         string
	PageTitle   string
	Referrer    string
	Language    string
	TZOffsetMin *int
	Viewport    map[string]any
	Screen      map[string]any

	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMTerm     string
	UTMContent  string

	DeviceInfo     string
	UserExternalID string
	UserEmail      string
	UserName       string

	Lead LeadHints

	// EventData is the residual free-form payload after meta_*/UTM/identity
	// extraction: form fields for form_submission, arbitrary structure for
	// custom_event.
	EventData map[string]any

	ClientTS *time.Time
}

// LeadHints is the bag of optional contact fields carried by a beacon.
type LeadHints struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	PropertyAddress string
}

// Empty reports whether no hint survived cleaning.
func (h LeadHints) Empty() bool {
	return h.FirstName == "" && h.LastName == "" && h.Email == "" &&
		h.Phone == "" && h.PropertyAddress == ""
}

// rawPayload mirrors the wire shape of a single beacon item. event_data is
// kept raw so a non-object value is a field error, not a decode failure.
type rawPayload struct {
	V         *int   `json:"v"`
	SiteKey   string `json:"site_key"`
	EventID   string `json:"event_id"`
	SessionID string `json:"session_id"`
	ClientID  string `json:"client_id"`
	EventType string `json:"event_type"`

	URL         string         `json:"url"`
	PageTitle   string         `json:"page_title"`
	Referrer    string         `json:"referrer"`
	Language    string         `json:"language"`
	TZOffsetMin *int           `json:"tz_offset_min"`
	Viewport    map[string]any `json:"viewport"`
	Screen      map[string]any `json:"screen"`

	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMTerm     string `json:"utm_term"`
	UTMContent  string `json:"utm_content"`

	DeviceInfo     string `json:"device_info"`
	UserExternalID string `json:"user_external_id"`
	UserEmail      string `json:"user_email"`
	UserName       string `json:"user_name"`

	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	PropertyAddress string `json:"property_address"`

	ClientTS  string          `json:"client_ts"`
	EventData json.RawMessage `json:"event_data"`
}

// metaFields is the single precedence table for fields that may arrive
// either top-level or nested inside event_data: an explicit top-level value
// wins over its nested counterpart, which wins over absence. The nested key
// is consumed out of the residual payload either way.
var metaFields = []struct {
	nested string
	get    func(*rawPayload) string
	set    func(*NormalizedEvent, string)
}{
	{"meta_url", func(r *rawPayload) string { return r.URL }, func(n *NormalizedEvent, v string) { n.URL = v }},
	{"meta_page_title", func(r *rawPayload) string { return r.PageTitle }, func(n *NormalizedEvent, v string) { n.PageTitle = v }},
	{"meta_referrer", func(r *rawPayload) string { return r.Referrer }, func(n *NormalizedEvent, v string) { n.Referrer = v }},
	{"meta_language", func(r *rawPayload) string { return r.Language }, func(n *NormalizedEvent, v string) { n.Language = v }},
	{"meta_device_info", func(r *rawPayload) string { return r.DeviceInfo }, func(n *NormalizedEvent, v string) { n.DeviceInfo = v }},
	{"utm_source", func(r *rawPayload) string { return r.UTMSource }, func(n *NormalizedEvent, v string) { n.UTMSource = v }},
	{"utm_medium", func(r *rawPayload) string { return r.UTMMedium }, func(n *NormalizedEvent, v string) { n.UTMMedium = v }},
	{"utm_campaign", func(r *rawPayload) string { return r.UTMCampaign }, func(n *NormalizedEvent, v string) { n.UTMCampaign = v }},
	{"utm_term", func(r *rawPayload) string { return r.UTMTerm }, func(n *NormalizedEvent, v string) { n.UTMTerm = v }},
	{"utm_content", func(r *rawPayload) string { return r.UTMContent }, func(n *NormalizedEvent, v string) { n.UTMContent = v }},
	{"meta_user_external_id", func(r *rawPayload) string { return r.UserExternalID }, func(n *NormalizedEvent, v string) { n.UserExternalID = v }},
	{"meta_user_email", func(r *rawPayload) string { return r.UserEmail }, func(n *NormalizedEvent, v string) { n.UserEmail = v }},
	{"meta_user_name", func(r *rawPayload) string { return r.UserName }, func(n *NormalizedEvent, v string) { n.UserName = v }},
	{"meta_first_name", func(r *rawPayload) string { return r.FirstName }, func(n *NormalizedEvent, v string) { n.Lead.FirstName = v }},
	{"meta_last_name", func(r *rawPayload) string { return r.LastName }, func(n *NormalizedEvent, v string) { n.Lead.LastName = v }},
	{"meta_email", func(r *rawPayload) string { return r.Email }, func(n *NormalizedEvent, v string) { n.Lead.Email = v }},
	{"meta_phone", func(r *rawPayload) string { return r.Phone }, func(n *NormalizedEvent, v string) { n.Lead.Phone = v }},
	{"meta_property_address", func(r *rawPayload) string { return r.PropertyAddress }, func(n *NormalizedEvent, v string) { n.Lead.PropertyAddress = v }},
}

// clientTSLayouts are tried in order; a trailing literal Z parses as UTC via
// RFC3339. A naive timestamp is taken as UTC. Parse failure means absent.
var clientTSLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Normalize validates one payload item and produces its normalized record.
// It is a pure transform; the returned *ValidationError is non-nil exactly
// when the item must be skipped.
func Normalize(raw json.RawMessage) (*NormalizedEvent, *ValidationError) {
	verr := newValidationError()

	var p rawPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		verr.add("payload", "must be a JSON object with typed fields")
		return nil, verr
	}

	n := &NormalizedEvent{}

	// Required fields.
	switch {
	case p.V == nil:
		verr.add("v", "required")
	case *p.V < 0:
		verr.add("v", "must be non-negative")
	default:
		n.SchemaVersion = *p.V
	}

	n.SiteKey = strings.TrimSpace(p.SiteKey)
	if n.SiteKey == "" {
		verr.add("site_key", "required")
	}

	n.SessionID = strings.TrimSpace(p.SessionID)
	if n.SessionID == "" {
		verr.add("session_id", "required")
	}

	if id := strings.TrimSpace(p.EventID); id == "" {
		verr.add("event_id", "required")
	} else if parsed, err := uuid.Parse(id); err != nil {
		verr.add("event_id", "must be a UUID")
	} else {
		n.EventID = parsed
	}

	n.EventType = strings.TrimSpace(p.EventType)
	if n.EventType == "" {
		verr.add("event_type", "required")
	} else if !models.KnownEventType(n.EventType) {
		verr.add("event_type", "must be one of page_load, form_submission, custom_event")
	}

	// event_data must be a structured key/value map when present.
	var eventData map[string]any
	if len(p.EventData) > 0 && string(p.EventData) != "null" {
		if err := json.Unmarshal(p.EventData, &eventData); err != nil {
			verr.add("event_data", "must be an object")
		}
	}

	n.ClientID = strings.TrimSpace(p.ClientID)
	n.TZOffsetMin = p.TZOffsetMin
	n.Viewport = p.Viewport
	n.Screen = p.Screen

	// Structured fields with a nested fallback; consumes keys from eventData.
	for _, f := range metaFields {
		v := strings.TrimSpace(f.get(&p))
		if nested, ok := takeString(eventData, f.nested); ok && v == "" {
			v = nested
		}
		if v != "" {
			f.set(n, v)
		}
	}
	if nested, ok := takeInt(eventData, "meta_tz_offset_min"); ok && n.TZOffsetMin == nil {
		n.TZOffsetMin = &nested
	}
	n.EventData = eventData

	if n.Lead.Email != "" && !strings.Contains(n.Lead.Email, "@") {
		verr.add("email", "must be a valid email address")
	}

	// Advisory client timestamp: parse failure is absence, not an error.
	if ts := strings.TrimSpace(p.ClientTS); ts != "" {
		for _, layout := range clientTSLayouts {
			if t, err := time.Parse(layout, ts); err == nil {
				t = t.UTC()
				n.ClientTS = &t
				break
			}
		}
	}

	if !verr.ok() {
		return nil, verr
	}
	return n, nil
}

// takeString pulls a string-ish value out of the residual payload,
// removing the key so it is not stored twice.
func takeString(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	delete(m, key)
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

// takeInt pulls an integer value out of the residual payload.
func takeInt(m map[string]any, key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	delete(m, key)
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return i, true
		}
	}
	return 0, false
}
