package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types accepted from clients. Anything else is rejected per item.
const (
	EventPageLoad       = "page_load"
	EventFormSubmission = "form_submission"
	EventCustom         = "custom_event"
)

// KnownEventType reports whether t is one of the accepted event kinds.
func KnownEventType(t string) bool {
	switch t {
	case EventPageLoad, EventFormSubmission, EventCustom:
		return true
	}
	return false
}

// Lead is a deduplicated contact record. A Lead is created on the first
// unmatched identity signal and only ever gains fields afterwards
// (fill-missing-only merge); it is never deleted by the ingestion path.
//
// Empty string means "unknown" throughout; the store persists blanks as NULL
// so the unique constraints on email/phone behave.
type Lead struct {
	ID              int64
	FirstName       string
	LastName        string
	Email           string // canonical: lower-cased
	Phone           string // canonical: digits only
	PropertyAddress string
	CreatedAt       time.Time
}

// LocationData is the structured GeoIP result stored on a Session after
// enrichment.
type LocationData struct {
	Country   string  `json:"country,omitempty"`
	City      string  `json:"city,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	IP        string  `json:"ip,omitempty"`
}

// Session is one browsing session, keyed by the client-supplied session_id.
// A Session can exist with no Lead and no identity fields at all.
type Session struct {
	ID             int64
	SessionID      string
	ClientID       string // longer-lived device/browser identifier
	SiteKey        string
	UserAgent      string
	DeviceInfo     string
	IPAddress      string
	LocationData   string // JSON (LocationData), written by enrichment only
	UserExternalID string
	UserEmail      string // lower-cased; tracks the current known identity
	UserName       string
	FirstSeen      time.Time // immutable after create
	LastSeen       time.Time // bumped on every touch
}

// Event is one tracked occurrence. EventID is the client-generated
// idempotency key; CreatedAt is server-authoritative.
type Event struct {
	ID            int64
	EventID       uuid.UUID
	SchemaVersion int
	SiteKey       string
	SessionPK     int64
	LeadPK        *int64
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

	EventData map[string]any
	ClientTS  *time.Time // client-reported, advisory only
	CreatedAt time.Time
}
