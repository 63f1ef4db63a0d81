package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/homesignal/tracker/internal/models"
)

// LeadStore is the persistence surface the lead resolver needs. The
// address-or-name query must return rows ordered by created_at then id so
// ambiguous matches resolve to the same row on every run.
type LeadStore interface {
	// FindLeadByEmail matches the canonical (lower-cased) email; nil, nil
	// when unknown.
	FindLeadByEmail(ctx context.Context, email string) (*models.Lead, error)
	// FindLeadByPhone matches the canonical (digits-only) phone; nil, nil
	// when unknown.
	FindLeadByPhone(ctx context.Context, phone string) (*models.Lead, error)
	// FindLeadsByAddressOrName returns every lead whose property_address
	// matches case-insensitively OR whose first+last name both match
	// case-insensitively, ordered by created_at, id.
	FindLeadsByAddressOrName(ctx context.Context, address, firstName, lastName string) ([]*models.Lead, error)
	// InsertLead attempts to create the lead. It returns false without error
	// when a unique constraint (email or phone) lost a concurrent race.
	InsertLead(ctx context.Context, l *models.Lead) (bool, error)
	// SaveLead persists merged fields on an existing lead.
	SaveLead(ctx context.Context, l *models.Lead) error
}

// LeadResolver deduplicates contact records across beacons using an ordered
// matching strategy: email, then phone, then address-or-name.
type LeadResolver struct {
	store LeadStore
	log   *logrus.Logger
}

func NewLeadResolver(store LeadStore, log *logrus.Logger) *LeadResolver {
	return &LeadResolver{store: store, log: log}
}

// canonicalPhone strips a phone number down to its digits.
func canonicalPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// cleanHints trims blanks and canonicalizes email/phone.
func cleanHints(h LeadHints) LeadHints {
	return LeadHints{
		FirstName:       strings.TrimSpace(h.FirstName),
		LastName:        strings.TrimSpace(h.LastName),
		Email:           strings.ToLower(strings.TrimSpace(h.Email)),
		Phone:           canonicalPhone(h.Phone),
		PropertyAddress: strings.TrimSpace(h.PropertyAddress),
	}
}

// Resolve returns the Lead matching the supplied hints, merging best-effort,
// or nil when no usable identity signal is present. It never fails on
// duplicate or ambiguous matches; only storage errors propagate.
//
// Matching stops at the first precedence rule with a usable key:
//
//  1. email: get-or-create under the email unique constraint
//  2. phone: get-or-create under the phone unique constraint
//  3. address-or-name: best-effort match, deterministic on ambiguity
//     (earliest created lead wins, warning logged); create when no match
//
// On any match the supplied fields are merged fill-missing-only.
func (r *LeadResolver) Resolve(ctx context.Context, hints LeadHints) (*models.Lead, error) {
	h := cleanHints(hints)
	if h.Empty() {
		return nil, nil
	}

	switch {
	case h.Email != "":
		return r.getOrCreate(ctx, h, func(ctx context.Context) (*models.Lead, error) {
			return r.store.FindLeadByEmail(ctx, h.Email)
		})
	case h.Phone != "":
		return r.getOrCreate(ctx, h, func(ctx context.Context) (*models.Lead, error) {
			return r.store.FindLeadByPhone(ctx, h.Phone)
		})
	case h.PropertyAddress != "" || (h.FirstName != "" && h.LastName != ""):
		return r.resolveByAddressOrName(ctx, h)
	}

	// A lone first or last name is too weak to match or create on.
	return nil, nil
}

// getOrCreate handles the constraint-protected rules (email, phone):
// find, else create, and on a lost create race re-find and merge.
func (r *LeadResolver) getOrCreate(ctx context.Context, h LeadHints, find func(context.Context) (*models.Lead, error)) (*models.Lead, error) {
	existing, err := find(ctx)
	if err != nil {
		return nil, fmt.Errorf("find lead: %w", err)
	}
	if existing != nil {
		return r.merge(ctx, existing, h)
	}

	lead := leadFromHints(h)
	created, err := r.store.InsertLead(ctx, lead)
	if err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	if created {
		return lead, nil
	}

	// A concurrent beacon created it between the find and the insert.
	existing, err = find(ctx)
	if err != nil {
		return nil, fmt.Errorf("refind lead after conflict: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("lead missing after create conflict")
	}
	return r.merge(ctx, existing, h)
}

// resolveByAddressOrName is the weakest rule: no unique constraint protects
// it, so concurrent beacons may race to create similar leads. Accepted,
// documented limitation.
func (r *LeadResolver) resolveByAddressOrName(ctx context.Context, h LeadHints) (*models.Lead, error) {
	matches, err := r.store.FindLeadsByAddressOrName(ctx, h.PropertyAddress, h.FirstName, h.LastName)
	if err != nil {
		return nil, fmt.Errorf("find lead by address/name: %w", err)
	}

	if len(matches) == 0 {
		lead := leadFromHints(h)
		if _, err := r.store.InsertLead(ctx, lead); err != nil {
			return nil, fmt.Errorf("create lead: %w", err)
		}
		return lead, nil
	}

	if len(matches) > 1 && r.log != nil {
		ids := make([]int64, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		r.log.WithFields(logrus.Fields{
			"address":   h.PropertyAddress,
			"match_ids": ids,
			"chosen_id": matches[0].ID,
		}).Warn("ambiguous lead match, merging into earliest-created lead")
	}

	return r.merge(ctx, matches[0], h)
}

// merge applies the fill-missing-only policy for every lead field and saves
// only when something changed.
func (r *LeadResolver) merge(ctx context.Context, lead *models.Lead, h LeadHints) (*models.Lead, error) {
	changed := applyMerge([]fieldMerge{
		{"first_name", FillMissingOnly, &lead.FirstName, h.FirstName},
		{"last_name", FillMissingOnly, &lead.LastName, h.LastName},
		{"email", FillMissingOnly, &lead.Email, h.Email},
		{"phone", FillMissingOnly, &lead.Phone, h.Phone},
		{"property_address", FillMissingOnly, &lead.PropertyAddress, h.PropertyAddress},
	})
	if len(changed) == 0 {
		return lead, nil
	}
	if err := r.store.SaveLead(ctx, lead); err != nil {
		// A filled email/phone may already belong to another lead. The match
		// itself stands; only the fill is dropped.
		if errors.Is(err, ErrDuplicateKey) {
			if r.log != nil {
				r.log.WithFields(logrus.Fields{
					"lead_id": lead.ID,
					"fields":  changed,
				}).Warn("lead merge skipped, filled value owned by another lead")
			}
			return lead, nil
		}
		return nil, fmt.Errorf("save lead: %w", err)
	}
	return lead, nil
}

func leadFromHints(h LeadHints) *models.Lead {
	return &models.Lead{
		FirstName:       h.FirstName,
		LastName:        h.LastName,
		Email:           h.Email,
		Phone:           h.Phone,
		PropertyAddress: h.PropertyAddress,
	}
}
