package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"catercal/logger"
	"catercal/pkg/errors"
)

// ClientConfig configures the calendar API client
type ClientConfig struct {
	// BaseURL of the calendar API; override it in tests
	BaseURL string
	// Token is sent as a bearer token when non-empty
	Token string
	// Timeout bounds each HTTP request
	Timeout time.Duration
	// MaxResultsPerPage caps one listing page
	MaxResultsPerPage int
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.googleapis.com/calendar/v3"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxResultsPerPage == 0 {
		c.MaxResultsPerPage = 2500
	}
	return c
}

// Client talks to a Google-Calendar-shaped events API
type Client struct {
	http *resty.Client
	cfg  ClientConfig
	log  *logger.Logger
}

// NewClient creates a calendar API client
func NewClient(cfg ClientConfig) *Client {
	cfg = cfg.withDefaults()

	http := resty.New()
	http.SetBaseURL(cfg.BaseURL)
	http.SetTimeout(cfg.Timeout)
	if cfg.Token != "" {
		http.SetAuthToken(cfg.Token)
	}

	return &Client{
		http: http,
		cfg:  cfg,
		log:  logger.ForSync(),
	}
}

// ListEvents fetches every event whose start falls inside the window,
// following continuation tokens until the listing is exhausted.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	var events []Event
	pageToken := ""

	for {
		req := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"singleEvents": "true",
				"orderBy":      "startTime",
				"timeMin":      timeMin.Format(time.RFC3339),
				"timeMax":      timeMax.Format(time.RFC3339),
				"maxResults":   fmt.Sprintf("%d", c.cfg.MaxResultsPerPage),
			})
		if pageToken != "" {
			req.SetQueryParam("pageToken", pageToken)
		}

		res, err := req.Get(fmt.Sprintf("/calendars/%s/events", calendarID))
		if err != nil {
			return nil, errors.NewCalendar("client", "event listing failed", err)
		}
		if res.IsError() {
			return nil, errors.NewCalendar("client", fmt.Sprintf("event listing returned %d", res.StatusCode()), nil)
		}

		var page eventList
		if err := json.Unmarshal(res.Body(), &page); err != nil {
			return nil, errors.NewCalendar("client", "event listing body did not parse", err)
		}

		events = append(events, page.Items...)
		pageToken = page.NextPageToken
		if pageToken == "" {
			return events, nil
		}
	}
}

// InsertEvent creates a new event
func (c *Client) InsertEvent(ctx context.Context, calendarID string, body *Event) (*Event, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(body).
		Post(fmt.Sprintf("/calendars/%s/events", calendarID))
	if err != nil {
		return nil, errors.NewCalendar("client", "event insert failed", err)
	}
	if res.IsError() {
		return nil, errors.NewCalendar("client", fmt.Sprintf("event insert returned %d", res.StatusCode()), nil)
	}

	var created Event
	if err := json.Unmarshal(res.Body(), &created); err != nil {
		return nil, errors.NewCalendar("client", "event insert body did not parse", err)
	}
	return &created, nil
}

// UpdateEvent fully replaces the event at the given id
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, body *Event) (*Event, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(body).
		Put(fmt.Sprintf("/calendars/%s/events/%s", calendarID, eventID))
	if err != nil {
		return nil, errors.NewCalendar("client", "event update failed", err)
	}
	if res.IsError() {
		return nil, errors.NewCalendar("client", fmt.Sprintf("event update returned %d", res.StatusCode()), nil)
	}

	var updated Event
	if err := json.Unmarshal(res.Body(), &updated); err != nil {
		return nil, errors.NewCalendar("client", "event update body did not parse", err)
	}
	return &updated, nil
}
