package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"catercal/internal/order"
	"catercal/logger"
)

// BodyBuilder turns an order into an event body. A nil return means the
// order cannot be represented (missing identifier or delivery time) and
// must be skipped, not retried.
type BodyBuilder func(o *order.Order) *Event

// Synchronizer reconciles extracted orders into the remote calendar.
// Runs are idempotent: re-scraping an order reproduces the same stable
// key, and a key already present in the fetched window is updated in
// place instead of duplicated.
type Synchronizer struct {
	client     *Client
	calendarID string
	log        *logger.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewSynchronizer creates a synchronizer for one calendar
func NewSynchronizer(client *Client, calendarID string) *Synchronizer {
	return &Synchronizer{
		client:     client,
		calendarID: calendarID,
		log:        logger.ForSync(),
		now:        time.Now,
	}
}

// Upsert maps orders onto calendar events without duplication. It
// fetches the existing window once, indexes it by stable key and then
// walks the orders in input sequence, creating or fully replacing one
// event per key. A remote write error aborts the run and returns the
// events written so far.
func (s *Synchronizer) Upsert(ctx context.Context, orders []order.Order, build BodyBuilder, windowBefore, windowAfter time.Duration) ([]Event, error) {
	now := s.now()
	existing, err := s.client.ListEvents(ctx, s.calendarID, now.Add(-windowBefore), now.Add(windowAfter))
	if err != nil {
		return nil, err
	}

	index := make(map[string]Event, len(existing))
	for _, ev := range existing {
		if key := ev.OrderKey(); key != "" {
			index[key] = ev
		}
	}
	s.log.Info().
		Int("events", len(existing)).
		Int("keyed", len(index)).
		Msg("Fetched existing event window")

	var written []Event
	for i := range orders {
		body := build(&orders[i])
		if body == nil {
			s.log.Warn().
				Str("atg_order_id", orders[i].ATGOrderID).
				Msg("Order produced no event body, skipping")
			continue
		}
		key := body.OrderKey()

		var result *Event
		if prior, ok := index[key]; ok {
			result, err = s.client.UpdateEvent(ctx, s.calendarID, prior.ID, body)
			if err != nil {
				return written, err
			}
			s.log.Info().Str("order_key", key).Str("event_id", prior.ID).Msg("Updated calendar event")
		} else {
			result, err = s.client.InsertEvent(ctx, s.calendarID, body)
			if err != nil {
				return written, err
			}
			s.log.Info().Str("order_key", key).Str("event_id", result.ID).Msg("Created calendar event")
		}

		// Register the write so a duplicate key later in this run
		// updates instead of inserting again: last write wins.
		index[key] = *result
		written = append(written, *result)
	}
	return written, nil
}

// pricingOrder fixes the description's pricing line order
var pricingOrder = []string{
	order.PricingSubtotal,
	order.PricingServiceFee,
	order.PricingDeliveryFee,
	order.PricingTax,
	order.PricingTotal,
	order.PricingPaymentMethod,
}

const descriptionRuler = "========================================"

// isoLayouts are the delivery timestamp shapes accepted by the builder:
// the scraper's minute-resolution local form and the webhook's
// offset-qualified form.
var isoLayouts = []string{"2006-01-02T15:04", time.RFC3339}

// BuildEventBody builds the calendar event body for an order, or nil
// when the order has no identifier or no parsable delivery timestamp.
func BuildEventBody(o *order.Order, platform, tzName string, duration time.Duration) *Event {
	key := o.Key(platform)
	if key == "" || o.DeliveryISO == "" {
		return nil
	}

	loc := loadLocation(tzName)

	var start time.Time
	var err error
	for _, layout := range isoLayouts {
		start, err = time.ParseInLocation(layout, o.DeliveryISO, loc)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil
	}
	end := start.Add(duration)

	customer := o.CustomerName
	if customer == "" {
		customer = "Customer"
	}
	title := key + " - " + customer
	if o.NumberOfPeople != "" {
		title += fmt.Sprintf(" - %s pax", o.NumberOfPeople)
	}
	if total := o.PricingValue(order.PricingTotal); total != "" {
		title += " - " + total
	}

	poID := o.POID
	if poID == "" {
		poID = "N/A"
	}
	instructions := o.DeliveryInstructions
	if instructions == "" {
		instructions = "N/A"
	}

	lines := []string{
		"<b>Identifier:</b> " + key,
		"<b>PO ID:</b> " + poID,
		descriptionRuler,
		"<b>Delivery Instructions:</b>\n" + instructions,
		descriptionRuler,
	}
	if len(o.Items) > 0 {
		lines = append(lines, "<b>Items:</b>")
		for _, item := range o.Items {
			lines = append(lines, fmt.Sprintf("  - %s x %s - %s", item.Quantity, item.Description, item.Price))
		}
		lines = append(lines, descriptionRuler)
	}
	if len(o.Pricing) > 0 {
		lines = append(lines, "<b>Pricing:</b>")
		for _, k := range pricingOrder {
			if v, ok := o.Pricing[k]; ok {
				lines = append(lines, fmt.Sprintf("  - %s: %s", k, v))
			}
		}
	}

	return &Event{
		Summary:     title,
		Location:    o.Address,
		Description: strings.Join(lines, "\n"),
		Start:       &EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: loc.String()},
		End:         &EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: loc.String()},
		ExtendedProperties: &ExtendedProperties{
			Private: map[string]string{OrderKeyProperty: key},
		},
	}
}

// loadLocation resolves an IANA timezone with bounded fallbacks
func loadLocation(tzName string) *time.Location {
	if loc, err := time.LoadLocation(tzName); err == nil {
		return loc
	}
	if loc, err := time.LoadLocation("America/Los_Angeles"); err == nil {
		return loc
	}
	return time.UTC
}
