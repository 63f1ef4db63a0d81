package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/homesignal/tracker/internal/models"
)

// SessionStore is the persistence surface the session resolver needs.
type SessionStore interface {
	// InsertSession attempts to create the session. It returns false without
	// error when another writer won the session_id unique constraint.
	InsertSession(ctx context.Context, s *models.Session) (bool, error)
	// FindSession returns nil, nil when the session_id is unknown.
	FindSession(ctx context.Context, sessionID string) (*models.Session, error)
	// SaveSession persists the merged mutable fields and bumps last_seen
	// to current server time.
	SaveSession(ctx context.Context, s *models.Session) error
}

// RequestContext carries the ambient network attributes of the beacon
// request: the client IP (first hop of X-Forwarded-For when present) and
// the user-agent string.
type RequestContext struct {
	ClientIP  string
	UserAgent string
}

// SessionResolver finds or creates the Session owning a beacon and merges
// newly observed attributes into it.
type SessionResolver struct {
	store SessionStore
	log   *logrus.Logger
}

func NewSessionResolver(store SessionStore, log *logrus.Logger) *SessionResolver {
	return &SessionResolver{store: store, log: log}
}

// Resolve is an atomic find-or-create by session_id. Two beacons racing on a
// new session_id cannot produce two rows: the losing creator retries as a
// find. Every touch bumps last_seen; first_seen never changes.
//
// Merge semantics on an existing session: fill-missing-only for everything
// except user_email, which tracks the current known identity and is
// overwritten when a new value differs case-insensitively.
func (r *SessionResolver) Resolve(ctx context.Context, ev *NormalizedEvent, req RequestContext) (*models.Session, error) {
	s := &models.Session{
		SessionID:      ev.SessionID,
		ClientID:       ev.ClientID,
		SiteKey:        ev.SiteKey,
		UserAgent:      req.UserAgent,
		DeviceInfo:     ev.DeviceInfo,
		IPAddress:      req.ClientIP,
		UserExternalID: ev.UserExternalID,
		UserEmail:      strings.ToLower(ev.UserEmail),
		UserName:       ev.UserName,
	}

	created, err := r.store.InsertSession(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if created {
		return s, nil
	}

	existing, err := r.store.FindSession(ctx, ev.SessionID)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("session %q missing after create conflict", ev.SessionID)
	}

	applyMerge([]fieldMerge{
		{"client_id", FillMissingOnly, &existing.ClientID, ev.ClientID},
		{"site_key", FillMissingOnly, &existing.SiteKey, ev.SiteKey},
		{"user_agent", FillMissingOnly, &existing.UserAgent, req.UserAgent},
		{"device_info", FillMissingOnly, &existing.DeviceInfo, ev.DeviceInfo},
		{"ip_address", FillMissingOnly, &existing.IPAddress, req.ClientIP},
		{"user_external_id", FillMissingOnly, &existing.UserExternalID, ev.UserExternalID},
		{"user_name", FillMissingOnly, &existing.UserName, ev.UserName},
		{"user_email", OverwriteIfDifferent, &existing.UserEmail, ev.UserEmail},
	})

	// Saved unconditionally: last_seen moves on every touch.
	if err := r.store.SaveSession(ctx, existing); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return existing, nil
}
