package handlers

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/homesignal/tracker/internal/ingest"
	"github.com/homesignal/tracker/internal/logging"
	"github.com/homesignal/tracker/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore is a minimal single-threaded ingest.Store for handler tests.
type fakeStore struct {
	sessions map[string]*models.Session
	leads    []*models.Lead
	events   map[uuid.UUID]*models.Event
	nextID   int64

	insertEventErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: map[string]*models.Session{},
		events:   map[uuid.UUID]*models.Event{},
	}
}

func (f *fakeStore) id() int64 { f.nextID++; return f.nextID }

func (f *fakeStore) InsertSession(_ context.Context, s *models.Session) (bool, error) {
	if _, ok := f.sessions[s.SessionID]; ok {
		return false, nil
	}
	s.ID = f.id()
	s.FirstSeen = time.Now()
	s.LastSeen = s.FirstSeen
	c := *s
	f.sessions[s.SessionID] = &c
	return true, nil
}

func (f *fakeStore) FindSession(_ context.Context, sessionID string) (*models.Session, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (f *fakeStore) SaveSession(_ context.Context, s *models.Session) error {
	c := *s
	f.sessions[s.SessionID] = &c
	return nil
}

func (f *fakeStore) FindLeadByEmail(_ context.Context, email string) (*models.Lead, error) {
	for _, l := range f.leads {
		if l.Email != "" && l.Email == email {
			c := *l
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindLeadByPhone(_ context.Context, phone string) (*models.Lead, error) {
	for _, l := range f.leads {
		if l.Phone != "" && l.Phone == phone {
			c := *l
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindLeadsByAddressOrName(_ context.Context, address, firstName, lastName string) ([]*models.Lead, error) {
	var out []*models.Lead
	for _, l := range f.leads {
		byAddress := address != "" && strings.EqualFold(l.PropertyAddress, address)
		byName := firstName != "" && lastName != "" &&
			strings.EqualFold(l.FirstName, firstName) && strings.EqualFold(l.LastName, lastName)
		if byAddress || byName {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) InsertLead(_ context.Context, l *models.Lead) (bool, error) {
	l.ID = f.id()
	l.CreatedAt = time.Now()
	c := *l
	f.leads = append(f.leads, &c)
	return true, nil
}

func (f *fakeStore) SaveLead(_ context.Context, l *models.Lead) error {
	for i, stored := range f.leads {
		if stored.ID == l.ID {
			c := *l
			f.leads[i] = &c
			break
		}
	}
	return nil
}

func (f *fakeStore) InsertEvent(_ context.Context, e *models.Event) (bool, error) {
	if f.insertEventErr != nil {
		return false, f.insertEventErr
	}
	if _, ok := f.events[e.EventID]; ok {
		return false, nil
	}
	e.ID = f.id()
	e.CreatedAt = time.Now()
	c := *e
	f.events[e.EventID] = &c
	return true, nil
}

func newTestPipeline(store ingest.Store) *ingest.Pipeline {
	return ingest.NewPipeline(store, nil, logging.NewLogger(), nil)
}

func validPayload(overrides map[string]any) []byte {
	base := map[string]any{
		"v":          1,
		"site_key":   "site-1",
		"session_id": "sess-1",
		"event_id":   uuid.New().String(),
		"event_type": "page_load",
	}
	for k, v := range overrides {
		if v == nil {
			delete(base, k)
			continue
		}
		base[k] = v
	}
	raw, _ := json.Marshal(base)
	return raw
}
