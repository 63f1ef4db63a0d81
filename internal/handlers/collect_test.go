package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homesignal/tracker/internal/models"
)

func postCollect(t *testing.T, r *gin.Engine, body []byte) (*httptest.ResponseRecorder, models.CollectResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/collect", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp models.CollectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestCollectSingleEvent(t *testing.T) {
	store := newFakeStore()
	r := gin.New()
	RegisterCollectRoutes(r, newTestPipeline(store))

	w, resp := postCollect(t, r, validPayload(nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, resp.Accepted)
	require.Len(t, resp.Results, 1)
	assert.NotEmpty(t, resp.Results[0].EventID)
	assert.False(t, resp.Results[0].Duplicate)
	assert.Len(t, store.events, 1)
}

func TestCollectDuplicateIsAccepted(t *testing.T) {
	store := newFakeStore()
	r := gin.New()
	RegisterCollectRoutes(r, newTestPipeline(store))

	body := validPayload(nil)
	postCollect(t, r, body)
	w, resp := postCollect(t, r, body)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, resp.Accepted)
	assert.True(t, resp.Results[0].Duplicate)
	assert.Len(t, store.events, 1)
}

func TestCollectBatchReportsPerItem(t *testing.T) {
	store := newFakeStore()
	r := gin.New()
	RegisterCollectRoutes(r, newTestPipeline(store))

	batch := []json.RawMessage{
		validPayload(nil),
		validPayload(map[string]any{"event_type": "bogus"}),
		validPayload(nil),
	}
	body, err := json.Marshal(batch)
	require.NoError(t, err)

	w, resp := postCollect(t, r, body)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 2, resp.Accepted)
	require.Len(t, resp.Results, 3)
	assert.Empty(t, resp.Results[0].Errors)
	assert.Contains(t, resp.Results[1].Errors, "event_type")
	assert.Empty(t, resp.Results[2].Errors)
	assert.Len(t, store.events, 2)
}

func TestCollectAllInvalid(t *testing.T) {
	r := gin.New()
	RegisterCollectRoutes(r, newTestPipeline(newFakeStore()))

	w, resp := postCollect(t, r, validPayload(map[string]any{"event_id": "nope"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, resp.Accepted)
	assert.Contains(t, resp.Results[0].Errors, "event_id")
}

func TestCollectEmptyBody(t *testing.T) {
	r := gin.New()
	RegisterCollectRoutes(r, newTestPipeline(newFakeStore()))

	w, resp := postCollect(t, r, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, resp.Accepted)
}

func TestCollectStorageFailure(t *testing.T) {
	store := newFakeStore()
	store.insertEventErr = errors.New("connection refused")
	r := gin.New()
	RegisterCollectRoutes(r, newTestPipeline(store))

	w, resp := postCollect(t, r, validPayload(nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 0, resp.Accepted)
	assert.Contains(t, resp.Results[0].Errors, "storage")
}

func TestCollectUsesForwardedIP(t *testing.T) {
	store := newFakeStore()
	r := gin.New()
	RegisterCollectRoutes(r, newTestPipeline(store))

	req := httptest.NewRequest(http.MethodPost, "/collect", bytes.NewReader(validPayload(nil)))
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", "test-agent")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	session := store.sessions["sess-1"]
	require.NotNil(t, session)
	assert.Equal(t, "203.0.113.9", session.IPAddress)
	assert.Equal(t, "test-agent", session.UserAgent)
}
