package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"catercal/config"
	"catercal/internal/calendar"
	"catercal/internal/order"
	"catercal/logger"
	"catercal/pkg/errors"
	"catercal/services/cache"
)

// Payload is the notification body ezCater posts on order changes
type Payload struct {
	EntityType string `json:"entity_type"`
	Key        string `json:"key"`
	EntityID   string `json:"entity_id"`
	OccurredAt string `json:"occurred_at"`
}

// Server receives order webhooks and mirrors them onto the calendar
type Server struct {
	cfg   *config.Config
	sync  *calendar.Synchronizer
	cache cache.CacheService
	log   *logger.Logger

	httpServer *http.Server
}

// NewServer creates a webhook server bound to a synchronizer and a
// deduplication cache.
func NewServer(cfg *config.Config, sync *calendar.Synchronizer, dedupe cache.CacheService) *Server {
	s := &Server{
		cfg:   cfg,
		sync:  sync,
		cache: dedupe,
		log:   logger.ForWebhook(),
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebhookPort),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route table, exported for tests
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /webhook/ezcater", s.handleEzcater)
	return mux
}

// Run serves until the context is cancelled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("Webhook server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEzcater(w http.ResponseWriter, r *http.Request) {
	var payload Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if payload.EntityID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "entity_id is required"})
		return
	}

	log := s.log.WithFields(logger.Fields{
		"entity_id": payload.EntityID,
		"key":       payload.Key,
	})

	if payload.EntityType != "Order" {
		log.Info().Str("entity_type", payload.EntityType).Msg("Ignoring non-order notification")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	// Providers redeliver on slow responses. Collapse retries of the
	// same entity inside the dedupe window.
	dedupeKey := "webhook:" + payload.EntityID
	if _, err := s.cache.Get(dedupeKey); err == nil {
		log.Info().Msg("Duplicate notification, already handled")
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}
	if err := s.cache.Set(dedupeKey, []byte(payload.Key), s.cfg.WebhookDedupeWindow); err != nil {
		log.Warn().Err(err).Msg("Failed to record dedupe key")
	}

	if err := s.persistPayload(&payload); err != nil {
		log.Warn().Err(err).Msg("Failed to persist webhook payload")
	}

	o := s.orderFromPayload(&payload)
	build := func(o *order.Order) *calendar.Event {
		return calendar.BuildEventBody(o, s.cfg.WebhookPlatform, s.cfg.CalendarTimezone, s.cfg.CalendarEventDuration)
	}
	window := time.Duration(s.cfg.WebhookWindowDays) * 24 * time.Hour

	written, err := s.sync.Upsert(r.Context(), []order.Order{o}, build, window, window)
	if err != nil {
		logger.LogError("webhook", err, "Calendar upsert failed for order %s", payload.EntityID)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "calendar sync failed"})
		return
	}
	if len(written) == 0 {
		log.Warn().Msg("Notification produced no calendar event")
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
		return
	}

	log.Info().Str("order_key", written[0].OrderKey()).Msg("Calendar event synchronized")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"order_key": written[0].OrderKey(),
	})
}

// orderFromPayload builds the minimal order a notification carries.
// ezCater sends no line items or pricing, so the event holds only the
// identifier, the vendor name and the occurrence time.
func (s *Server) orderFromPayload(p *Payload) order.Order {
	poID := p.EntityID
	if len(poID) > 8 {
		poID = poID[:8]
	}
	return order.Order{
		ATGOrderID:   p.EntityID,
		POID:         s.cfg.WebhookPlatform + "-" + poID,
		VendorName:   "EZCater",
		CustomerName: "EZCater",
		DeliveryISO:  strings.ReplaceAll(p.OccurredAt, "Z", "+00:00"),
	}
}

// persistPayload keeps the raw notification on disk for replay
func (s *Server) persistPayload(p *Payload) error {
	if err := os.MkdirAll(s.cfg.OutDir, 0o755); err != nil {
		return errors.New(errors.ErrorTypeValidation, "webhook", "failed to create output directory", err)
	}
	name := fmt.Sprintf("webhook_%s_%s.json", p.EntityID, time.Now().Format("20060102_150405"))
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.cfg.OutDir, name), data, 0o644)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
