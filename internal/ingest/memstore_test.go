package ingest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homesignal/tracker/internal/models"
)

// memStore is an in-memory Store with the same contract as the Postgres
// implementation: unique keys on session_id / email / phone / event_id,
// conflict reported as created=false, SaveLead surfacing ErrDuplicateKey.
// The clock ticks on every call so last_seen ordering is observable.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	leads    []*models.Lead
	events   map[uuid.UUID]*models.Event
	nextID   int64
	clock    time.Time

	saveLeadCalls    int
	saveSessionCalls int
}

func newMemStore() *memStore {
	return &memStore{
		sessions: map[string]*models.Session{},
		events:   map[uuid.UUID]*models.Event{},
		clock:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func copySession(s *models.Session) *models.Session { c := *s; return &c }
func copyLead(l *models.Lead) *models.Lead          { c := *l; return &c }

func (m *memStore) InsertSession(_ context.Context, s *models.Session) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.SessionID]; exists {
		return false, nil
	}
	s.ID = m.id()
	now := m.tick()
	s.FirstSeen = now
	s.LastSeen = now
	m.sessions[s.SessionID] = copySession(s)
	return true, nil
}

func (m *memStore) FindSession(_ context.Context, sessionID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (m *memStore) SaveSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveSessionCalls++
	stored, ok := m.sessions[s.SessionID]
	if !ok {
		return nil
	}
	s.FirstSeen = stored.FirstSeen
	s.LastSeen = m.tick()
	m.sessions[s.SessionID] = copySession(s)
	return nil
}

func (m *memStore) FindLeadByEmail(_ context.Context, email string) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leads {
		if l.Email != "" && l.Email == email {
			return copyLead(l), nil
		}
	}
	return nil, nil
}

func (m *memStore) FindLeadByPhone(_ context.Context, phone string) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leads {
		if l.Phone != "" && l.Phone == phone {
			return copyLead(l), nil
		}
	}
	return nil, nil
}

func (m *memStore) FindLeadsByAddressOrName(_ context.Context, address, firstName, lastName string) ([]*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Lead
	for _, l := range m.leads {
		byAddress := address != "" && l.PropertyAddress != "" && strings.EqualFold(l.PropertyAddress, address)
		byName := firstName != "" && lastName != "" &&
			strings.EqualFold(l.FirstName, firstName) && strings.EqualFold(l.LastName, lastName)
		if byAddress || byName {
			out = append(out, copyLead(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// uniqueConflict reports whether candidate email/phone collide with a lead
// other than excludeID.
func (m *memStore) uniqueConflict(email, phone string, excludeID int64) bool {
	for _, l := range m.leads {
		if l.ID == excludeID {
			continue
		}
		if email != "" && l.Email == email {
			return true
		}
		if phone != "" && l.Phone == phone {
			return true
		}
	}
	return false
}

func (m *memStore) InsertLead(_ context.Context, l *models.Lead) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uniqueConflict(l.Email, l.Phone, 0) {
		return false, nil
	}
	l.ID = m.id()
	l.CreatedAt = m.tick()
	m.leads = append(m.leads, copyLead(l))
	return true, nil
}

func (m *memStore) SaveLead(_ context.Context, l *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveLeadCalls++
	if m.uniqueConflict(l.Email, l.Phone, l.ID) {
		return ErrDuplicateKey
	}
	for i, stored := range m.leads {
		if stored.ID == l.ID {
			keep := stored.CreatedAt
			m.leads[i] = copyLead(l)
			m.leads[i].CreatedAt = keep
			break
		}
	}
	return nil
}

func (m *memStore) InsertEvent(_ context.Context, e *models.Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.events[e.EventID]; exists {
		return false, nil
	}
	e.ID = m.id()
	e.CreatedAt = m.tick()
	stored := *e
	m.events[e.EventID] = &stored
	return true, nil
}

// leadByID returns the stored lead, for asserting persisted state.
func (m *memStore) leadByID(id int64) *models.Lead {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leads {
		if l.ID == id {
			return copyLead(l)
		}
	}
	return nil
}

// recordingDispatcher captures enrichment dispatches.
type recordingDispatcher struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (d *recordingDispatcher) Dispatch(eventID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, eventID)
}
