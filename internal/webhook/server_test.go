package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catercal/config"
	"catercal/internal/calendar"
	"catercal/services/cache"
)

// calendarRecorder is a minimal events API capturing writes
type calendarRecorder struct {
	inserts []calendar.Event
	updates []calendar.Event
}

func (c *calendarRecorder) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var items []calendar.Event
		items = append(items, c.inserts...)
		items = append(items, c.updates...)
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	})
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var ev calendar.Event
		json.NewDecoder(r.Body).Decode(&ev)
		ev.ID = fmt.Sprintf("evt-%d", len(c.inserts)+1)
		c.inserts = append(c.inserts, ev)
		json.NewEncoder(w).Encode(ev)
	})
	mux.HandleFunc("PUT /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		var ev calendar.Event
		json.NewDecoder(r.Body).Decode(&ev)
		ev.ID = r.PathValue("id")
		c.updates = append(c.updates, ev)
		json.NewEncoder(w).Encode(ev)
	})
	return mux
}

func newTestServer(t *testing.T) (*Server, *calendarRecorder) {
	t.Helper()

	recorder := &calendarRecorder{}
	api := httptest.NewServer(recorder.handler())
	t.Cleanup(api.Close)

	cfg := &config.Config{
		OutDir:                t.TempDir(),
		CalendarID:            "primary",
		CalendarTimezone:      "UTC",
		CalendarEventDuration: time.Hour,
		WebhookPort:           5000,
		WebhookPlatform:       "EZ",
		WebhookDedupeWindow:   5 * time.Minute,
		WebhookWindowDays:     30,
	}
	client := calendar.NewClient(calendar.ClientConfig{BaseURL: api.URL})
	sync := calendar.NewSynchronizer(client, cfg.CalendarID)
	return NewServer(cfg, sync, cache.NewMemoryService()), recorder
}

func postNotification(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/ezcater", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const orderNotification = `{
	"entity_type": "Order",
	"key": "accepted",
	"entity_id": "abcdef12-3456",
	"occurred_at": "2025-09-11T15:00:00Z"
}`

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeStatus(t, rec)["status"])
}

func TestOrderNotificationCreatesEvent(t *testing.T) {
	srv, recorder := newTestServer(t)
	rec := postNotification(t, srv.Handler(), orderNotification)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeStatus(t, rec)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "EZ-abcdef12-3456", out["order_key"])

	require.Len(t, recorder.inserts, 1)
	ev := recorder.inserts[0]
	assert.Equal(t, "EZ-abcdef12-3456", ev.OrderKey())
	assert.Contains(t, ev.Summary, "EZCater")
	assert.Equal(t, "2025-09-11T15:00:00Z", ev.Start.DateTime)
	assert.Contains(t, ev.Description, "<b>PO ID:</b> EZ-abcdef12")
}

func TestNonOrderNotificationIgnored(t *testing.T) {
	srv, recorder := newTestServer(t)
	rec := postNotification(t, srv.Handler(), `{
		"entity_type": "Menu",
		"key": "updated",
		"entity_id": "menu-1",
		"occurred_at": "2025-09-11T15:00:00Z"
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", decodeStatus(t, rec)["status"])
	assert.Empty(t, recorder.inserts)
}

func TestDuplicateNotificationCollapsed(t *testing.T) {
	srv, recorder := newTestServer(t)

	first := postNotification(t, srv.Handler(), orderNotification)
	require.Equal(t, http.StatusOK, first.Code)

	second := postNotification(t, srv.Handler(), orderNotification)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "duplicate", decodeStatus(t, second)["status"])

	assert.Len(t, recorder.inserts, 1)
	assert.Empty(t, recorder.updates)
}

func TestInvalidPayloadsRejected(t *testing.T) {
	srv, recorder := newTestServer(t)

	rec := postNotification(t, srv.Handler(), `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postNotification(t, srv.Handler(), `{"entity_type": "Order", "key": "accepted"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, recorder.inserts)
}

func TestPayloadPersistedToDisk(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postNotification(t, srv.Handler(), orderNotification)
	require.Equal(t, http.StatusOK, rec.Code)

	entries, err := os.ReadDir(srv.cfg.OutDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "webhook_abcdef12-3456_"))

	data, err := os.ReadFile(filepath.Join(srv.cfg.OutDir, entries[0].Name()))
	require.NoError(t, err)

	var saved Payload
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "accepted", saved.Key)
}
