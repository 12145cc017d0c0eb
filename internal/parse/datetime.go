package parse

import (
	"regexp"
	"strings"
	"time"
)

// DeliveryTime holds the fields derived from a "Deliver at" string.
// Raw is always set; the derived fields are empty when parsing failed
// and their absence means "extraction ambiguous", never midnight.
type DeliveryTime struct {
	Raw     string
	ISO     string // "2006-01-02T15:04"
	Date    string // "2006-01-02"
	Time24h string // "15:04"
}

var deliveryTimeRe = regexp.MustCompile(`(\d{1,2}:\d{2}\s*[AP]M)\s+(.+)`)

// Date phrases show up both with and without the weekday name.
var dateLayouts = []string{
	"Monday, January 2, 2006",
	"January 2, 2006",
}

// ParseDeliveryTime extracts a time token and a date phrase from a
// cleaned "Deliver at" string. The second return is false when either
// half failed to parse, in which case only Raw is populated.
func ParseDeliveryTime(cleaned string) (DeliveryTime, bool) {
	dt := DeliveryTime{Raw: cleaned}

	m := deliveryTimeRe.FindStringSubmatch(cleaned)
	if m == nil {
		return dt, false
	}
	timePart := strings.ToUpper(strings.TrimSpace(m[1]))
	datePart := strings.TrimSpace(m[2])

	var parsedDate time.Time
	var dateOK bool
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, datePart); err == nil {
			parsedDate = d
			dateOK = true
			break
		}
	}

	parsedTime, err := time.Parse("3:04 PM", timePart)
	if err != nil || !dateOK {
		return dt, false
	}

	combined := time.Date(
		parsedDate.Year(), parsedDate.Month(), parsedDate.Day(),
		parsedTime.Hour(), parsedTime.Minute(), 0, 0, time.UTC,
	)
	dt.ISO = combined.Format("2006-01-02T15:04")
	dt.Date = combined.Format("2006-01-02")
	dt.Time24h = combined.Format("15:04")
	return dt, true
}
