package ingest

import "strings"

// MergeStrategy decides how an incoming field value is applied to a stored
// entity field. One routine applies the policy uniformly; entities declare
// their policy as a rule table instead of bespoke per-field code.
type MergeStrategy int

const (
	// FillMissingOnly sets the field only when the stored value is blank.
	FillMissingOnly MergeStrategy = iota
	// OverwriteIfDifferent replaces the stored value when the incoming one
	// differs case-insensitively; the stored form is lower-cased.
	OverwriteIfDifferent
	// ImmutableAfterCreate never changes after the row is created.
	ImmutableAfterCreate
)

// fieldMerge binds one entity field to its merge strategy for a single
// resolution pass.
type fieldMerge struct {
	name     string
	strategy MergeStrategy
	current  *string
	incoming string
}

// applyMerge runs the policy table and returns the names of fields that
// changed. Blank incoming values never change anything.
func applyMerge(rules []fieldMerge) []string {
	var changed []string
	for _, r := range rules {
		incoming := strings.TrimSpace(r.incoming)
		if incoming == "" {
			continue
		}
		switch r.strategy {
		case FillMissingOnly:
			if *r.current == "" {
				*r.current = incoming
				changed = append(changed, r.name)
			}
		case OverwriteIfDifferent:
			if !strings.EqualFold(*r.current, incoming) {
				*r.current = strings.ToLower(incoming)
				changed = append(changed, r.name)
			}
		case ImmutableAfterCreate:
			// Set at create time only; nothing to do here.
		}
	}
	return changed
}
