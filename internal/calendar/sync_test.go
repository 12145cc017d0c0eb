package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catercal/internal/order"
)

// fakeCalendarAPI is an in-memory events API with continuation-token
// paging, backing the client and synchronizer tests.
type fakeCalendarAPI struct {
	events   map[string]*Event
	inserts  int
	updates  int
	nextID   int
	pageSize int
}

func newFakeCalendarAPI() *fakeCalendarAPI {
	return &fakeCalendarAPI{
		events:   make(map[string]*Event),
		pageSize: 100,
	}
}

func (f *fakeCalendarAPI) sorted() []*Event {
	ids := make([]string, 0, len(f.events))
	for id := range f.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.events[id])
	}
	return out
}

func (f *fakeCalendarAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		all := f.sorted()
		offset := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			offset, _ = strconv.Atoi(tok)
		}

		end := offset + f.pageSize
		if end > len(all) {
			end = len(all)
		}
		page := eventList{}
		for _, ev := range all[offset:end] {
			page.Items = append(page.Items, *ev)
		}
		if end < len(all) {
			page.NextPageToken = strconv.Itoa(end)
		}
		json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.nextID++
		ev.ID = fmt.Sprintf("evt-%03d", f.nextID)
		f.events[ev.ID] = &ev
		f.inserts++
		json.NewEncoder(w).Encode(ev)
	})
	mux.HandleFunc("PUT /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, ok := f.events[id]; !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ev.ID = id
		f.events[id] = &ev
		f.updates++
		json.NewEncoder(w).Encode(ev)
	})
	return mux
}

func newTestSynchronizer(t *testing.T, api *fakeCalendarAPI) *Synchronizer {
	t.Helper()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)
	client := NewClient(ClientConfig{BaseURL: server.URL})
	return NewSynchronizer(client, "primary")
}

func testOrder(id, customer string) order.Order {
	return order.Order{
		ATGOrderID:   id,
		CustomerName: customer,
		Address:      "100 Main St, San Francisco, CA 94105",
		DeliveryISO:  "2025-09-11T15:00",
	}
}

func atgBuilder(o *order.Order) *Event {
	return BuildEventBody(o, "ATG", "America/Los_Angeles", time.Hour)
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	api := newFakeCalendarAPI()
	sync := newTestSynchronizer(t, api)
	orders := []order.Order{testOrder("100", "Acme"), testOrder("200", "Beta")}

	written, err := sync.Upsert(context.Background(), orders, atgBuilder, 365*24*time.Hour, 365*24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, written, 2)
	assert.Equal(t, 2, api.inserts)
	assert.Equal(t, 0, api.updates)

	// Second run with the same orders performs only updates and leaves
	// the total event count unchanged.
	written, err = sync.Upsert(context.Background(), orders, atgBuilder, 365*24*time.Hour, 365*24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, written, 2)
	assert.Equal(t, 2, api.inserts)
	assert.Equal(t, 2, api.updates)
	assert.Len(t, api.events, 2)
}

func TestUpsertLastWriteWinsWithinRun(t *testing.T) {
	api := newFakeCalendarAPI()
	sync := newTestSynchronizer(t, api)
	orders := []order.Order{testOrder("100", "First Name"), testOrder("100", "Second Name")}

	written, err := sync.Upsert(context.Background(), orders, atgBuilder, time.Hour, time.Hour)
	require.NoError(t, err)
	assert.Len(t, written, 2)

	// Exactly one event for the key, carrying the second order's data
	require.Len(t, api.events, 1)
	for _, ev := range api.events {
		assert.Equal(t, "ATG-100", ev.OrderKey())
		assert.Contains(t, ev.Summary, "Second Name")
	}
}

func TestUpsertSkipsUnbuildableOrders(t *testing.T) {
	api := newFakeCalendarAPI()
	sync := newTestSynchronizer(t, api)
	orders := []order.Order{
		{ATGOrderID: "300"}, // no delivery timestamp
		{CustomerName: "No ID", DeliveryISO: "2025-09-11T15:00"},
		testOrder("400", "Kept"),
	}

	written, err := sync.Upsert(context.Background(), orders, atgBuilder, time.Hour, time.Hour)
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, "ATG-400", written[0].OrderKey())
}

func TestUpsertIgnoresForeignEvents(t *testing.T) {
	api := newFakeCalendarAPI()
	// A pre-existing event without an order key must never be touched
	api.nextID++
	api.events["evt-000"] = &Event{ID: "evt-000", Summary: "Team standup"}

	sync := newTestSynchronizer(t, api)
	_, err := sync.Upsert(context.Background(), []order.Order{testOrder("100", "Acme")}, atgBuilder, time.Hour, time.Hour)
	require.NoError(t, err)

	assert.Len(t, api.events, 2)
	assert.Equal(t, "Team standup", api.events["evt-000"].Summary)
}

func TestListEventsFollowsContinuationTokens(t *testing.T) {
	api := newFakeCalendarAPI()
	api.pageSize = 2
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("evt-%03d", i)
		api.events[id] = &Event{ID: id, Summary: fmt.Sprintf("event %d", i)}
	}

	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)
	client := NewClient(ClientConfig{BaseURL: server.URL})

	events, err := client.ListEvents(context.Background(), "primary", time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestBuildEventBody(t *testing.T) {
	o := testOrder("445566", "Acme Corp")
	o.POID = "PO789A"
	o.NumberOfPeople = "25"
	o.DeliveryInstructions = "Use loading dock"
	o.Pricing = map[string]string{
		order.PricingSubtotal: "$115.00",
		order.PricingTotal:    "$152.08",
	}
	o.Items = []order.OrderItem{{Quantity: "2", Description: "Sandwich Platter", Price: "$45.00"}}

	body := BuildEventBody(&o, "ATG", "America/Los_Angeles", time.Hour)
	require.NotNil(t, body)

	assert.Equal(t, "ATG-445566 - Acme Corp - 25 pax - $152.08", body.Summary)
	assert.Equal(t, o.Address, body.Location)
	assert.Equal(t, "ATG-445566", body.OrderKey())
	assert.Equal(t, "America/Los_Angeles", body.Start.TimeZone)
	assert.True(t, strings.HasPrefix(body.Start.DateTime, "2025-09-11T15:00:00"))
	assert.True(t, strings.HasPrefix(body.End.DateTime, "2025-09-11T16:00:00"))
	assert.Contains(t, body.Description, "<b>PO ID:</b> PO789A")
	assert.Contains(t, body.Description, "Use loading dock")
	assert.Contains(t, body.Description, "2 x Sandwich Platter - $45.00")
	assert.Contains(t, body.Description, "subtotal: $115.00")
}

func TestBuildEventBodyNilCases(t *testing.T) {
	noID := order.Order{DeliveryISO: "2025-09-11T15:00"}
	assert.Nil(t, BuildEventBody(&noID, "ATG", "UTC", time.Hour))

	noISO := order.Order{ATGOrderID: "100"}
	assert.Nil(t, BuildEventBody(&noISO, "ATG", "UTC", time.Hour))

	badISO := order.Order{ATGOrderID: "100", DeliveryISO: "next thursday"}
	assert.Nil(t, BuildEventBody(&badISO, "ATG", "UTC", time.Hour))
}

func TestBuildEventBodyAcceptsOffsetTimestamps(t *testing.T) {
	o := order.Order{ATGOrderID: "web-1", DeliveryISO: "2025-09-11T15:00:00+00:00"}
	body := BuildEventBody(&o, "EZ", "UTC", 30*time.Minute)
	require.NotNil(t, body)
	assert.Equal(t, "EZ-web-1", body.OrderKey())
	assert.Equal(t, "2025-09-11T15:00:00Z", body.Start.DateTime)
	assert.Equal(t, "2025-09-11T15:30:00Z", body.End.DateTime)
}
