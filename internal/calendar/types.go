package calendar

// OrderKeyProperty is the private extended property correlating an event
// with a scraped order. At most one event may exist per key within any
// queried window; Upsert enforces this by searching before writing.
const OrderKeyProperty = "order_key"

// EventDateTime represents an event boundary
type EventDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// ExtendedProperties carries application-defined event metadata
type ExtendedProperties struct {
	Private map[string]string `json:"private,omitempty"`
}

// Event mirrors the calendar API's event resource, limited to the
// fields this tool reads and writes
type Event struct {
	ID                 string              `json:"id,omitempty"`
	Summary            string              `json:"summary,omitempty"`
	Location           string              `json:"location,omitempty"`
	Description        string              `json:"description,omitempty"`
	Start              *EventDateTime      `json:"start,omitempty"`
	End                *EventDateTime      `json:"end,omitempty"`
	ExtendedProperties *ExtendedProperties `json:"extendedProperties,omitempty"`
}

// OrderKey returns the event's stable key, or "" when it carries none
func (e *Event) OrderKey() string {
	if e.ExtendedProperties == nil {
		return ""
	}
	return e.ExtendedProperties.Private[OrderKeyProperty]
}

// eventList is one page of the events listing
type eventList struct {
	Items         []Event `json:"items"`
	NextPageToken string  `json:"nextPageToken"`
}
