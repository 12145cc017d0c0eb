package scraper

import (
	"context"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"catercal/helpers"
	"catercal/internal/browser"
	"catercal/internal/order"
	"catercal/internal/parse"
	"catercal/logger"
	"catercal/pkg/errors"
)

// Detail is the partial record pulled from one detail popup. Zero values
// mean the field could not be determined; extraction failures are
// isolated per field and never abort the other fields.
type Detail struct {
	ATGOrderID           string
	POID                 string
	VendorName           string
	CustomerName         string
	Address              string
	DeliveryInfo         string
	DeliveryInstructions string
	DeliveryTime         parse.DeliveryTime
	NumberOfPeople       string
	CostPerPerson        string
	CreatedDate          string
	Pricing              map[string]string
	Items                []order.OrderItem
}

// ToOrder converts the detail into an Order with the given provenance
func (d *Detail) ToOrder(page, row, sequence int) order.Order {
	return order.Order{
		ATGOrderID:           d.ATGOrderID,
		POID:                 d.POID,
		VendorName:           d.VendorName,
		CustomerName:         d.CustomerName,
		Address:              d.Address,
		DeliveryInfo:         d.DeliveryInfo,
		DeliveryInstructions: d.DeliveryInstructions,
		DeliveryTimeRaw:      d.DeliveryTime.Raw,
		DeliveryISO:          d.DeliveryTime.ISO,
		DeliveryDate:         d.DeliveryTime.Date,
		DeliveryTime24h:      d.DeliveryTime.Time24h,
		NumberOfPeople:       d.NumberOfPeople,
		CostPerPerson:        d.CostPerPerson,
		CreatedDate:          d.CreatedDate,
		Pricing:              d.Pricing,
		Items:                d.Items,
		PageNumber:           page,
		RowNumber:            row,
		OrderSequence:        sequence,
	}
}

var (
	atgOrderIDRe = regexp.MustCompile(`ATG Order ID:\s*(\d+)`)
	poIDRe       = regexp.MustCompile(`PO ID:\s*(\w+)`)
	peopleRe     = regexp.MustCompile(`This order is for (\d+) people`)
	perPersonRe  = regexp.MustCompile(`\$([0-9.]+) per person`)
	createdRe    = regexp.MustCompile(`created (.+)`)
	brRe         = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTagRe     = regexp.MustCompile(`<[^>]+>`)
)

// ExtractorConfig bounds the popup wait
type ExtractorConfig struct {
	PopupTimeout time.Duration
}

func (c ExtractorConfig) withDefaults() ExtractorConfig {
	if c.PopupTimeout == 0 {
		c.PopupTimeout = 15 * time.Second
	}
	return c
}

// Extractor captures the open detail popup's markup and parses it
type Extractor struct {
	d   browser.Driver
	cfg ExtractorConfig
	log *logger.Logger
}

// NewExtractor creates an extractor over a frame-scoped driver
func NewExtractor(d browser.Driver, cfg ExtractorConfig) *Extractor {
	return &Extractor{
		d:   d,
		cfg: cfg.withDefaults(),
		log: logger.ForScraper(),
	}
}

// Extract waits for the detail popup and parses its fields
func (e *Extractor) Extract(ctx context.Context) (Detail, error) {
	if err := e.d.WaitVisible(ctx, selPopup, e.cfg.PopupTimeout); err != nil {
		return Detail{}, errors.NewUI("detail", "order popup never became visible", err)
	}
	popupHTML, err := e.d.HTML(ctx, selPopup)
	if err != nil {
		return Detail{}, errors.NewUI("detail", "order popup markup unreadable", err)
	}
	return ParseDetail(popupHTML)
}

// ParseDetail parses the popup's markup into a Detail. Each field is
// extracted independently; a missing field stays zero-valued.
func ParseDetail(popupHTML string) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(popupHTML))
	if err != nil {
		return Detail{}, errors.NewParsing("detail", "popup markup did not parse", err)
	}

	var d Detail
	fullText := doc.Text()

	if m := atgOrderIDRe.FindStringSubmatch(fullText); m != nil {
		d.ATGOrderID = m[1]
	}
	if m := poIDRe.FindStringSubmatch(fullText); m != nil {
		d.POID = m[1]
	}

	if vendor := doc.Find(".important").First(); vendor.Length() > 0 {
		d.VendorName = helpers.CleanText(vendor.Text())
	}

	extractDelivery(doc, &d)
	extractDeliveryTime(doc, &d)

	if block := blockContaining(doc, "Delivery Instructions", 2); block != nil {
		text := strings.ReplaceAll(block.Text(), "Delivery Instructions", "")
		d.DeliveryInstructions = helpers.CleanText(text)
	}

	d.Items = extractItems(doc)
	d.Pricing = extractPricing(doc)

	if block := blockContaining(doc, "This order is for", 1); block != nil {
		text := block.Text()
		if m := peopleRe.FindStringSubmatch(text); m != nil {
			d.NumberOfPeople = m[1]
		}
		if m := perPersonRe.FindStringSubmatch(text); m != nil {
			d.CostPerPerson = m[1]
		}
	}

	if footer := doc.Find(".footer").First(); footer.Length() > 0 {
		if m := createdRe.FindStringSubmatch(footer.Text()); m != nil {
			d.CreatedDate = strings.TrimSpace(m[1])
		}
	}

	return d, nil
}

// extractDelivery pulls the address, the flattened delivery text and the
// customer name from the "Deliver to" block.
func extractDelivery(doc *goquery.Document, d *Detail) {
	block := blockContaining(doc, "Deliver to", 1)
	if block == nil {
		return
	}

	blockHTML, err := goquery.OuterHtml(block)
	if err != nil {
		d.DeliveryInfo = helpers.CleanText(block.Text())
	} else {
		d.Address = parse.ExtractAddress(blockHTML)
		d.DeliveryInfo = helpers.CleanText(flattenHTML(blockHTML))
	}

	// The portal usually tags the recipient with an "important" span;
	// otherwise the first chunk of the delivery text is the best guess.
	var customer string
	if span := block.Find("span.important").First(); span.Length() > 0 {
		customer = helpers.CleanText(span.Text())
	}
	if customer == "" {
		customer = helpers.CleanText(helpers.FirstSplitPart(d.DeliveryInfo, ",", "|", "\n"))
	}
	if customer == "" {
		customer = "Customer"
	}
	d.CustomerName = helpers.Truncate(customer, 80)
}

// extractDeliveryTime pulls and parses the "Deliver at" block
func extractDeliveryTime(doc *goquery.Document, d *Detail) {
	block := blockContaining(doc, "Deliver at", 1)
	if block == nil {
		return
	}

	var text string
	if blockHTML, err := goquery.OuterHtml(block); err == nil {
		text = flattenHTML(blockHTML)
	} else {
		text = block.Text()
	}

	cleaned := helpers.CleanText(strings.ReplaceAll(text, "Deliver at", ""))
	d.DeliveryTime, _ = parse.ParseDeliveryTime(cleaned)
}

// extractItems collects item rows. A row missing any of quantity,
// description or price is dropped.
func extractItems(doc *goquery.Document) []order.OrderItem {
	var items []order.OrderItem
	doc.Find("tr.item-row").Each(func(_ int, row *goquery.Selection) {
		qty := helpers.CleanText(row.Find(".quantity").First().Text())
		desc := helpers.CleanText(row.Find("td").Eq(2).Text())
		price := helpers.CleanText(row.Find(".price").First().Text())

		if qty != "" && desc != "" && price != "" {
			items = append(items, order.OrderItem{
				Quantity:    qty,
				Description: desc,
				Price:       price,
			})
		}
	})
	return items
}

// extractPricing locates each charge by its label and the sibling
// charge-amount cell; the total and payment method use marker classes.
func extractPricing(doc *goquery.Document) map[string]string {
	pricing := make(map[string]string)

	labeled := []struct {
		label string
		key   string
	}{
		{"Subtotal", order.PricingSubtotal},
		{"Service Fee", order.PricingServiceFee},
		{"Delivery", order.PricingDeliveryFee},
		{"Tax", order.PricingTax},
	}
	for _, lf := range labeled {
		block := blockContaining(doc, lf.label, 2)
		if block == nil {
			continue
		}
		if amount := block.Find(".charge-amount").First(); amount.Length() > 0 {
			pricing[lf.key] = helpers.CleanText(amount.Text())
		}
	}

	if total := doc.Find(".total-amount").First(); total.Length() > 0 {
		pricing[order.PricingTotal] = helpers.CleanText(total.Text())
	}
	if payment := doc.Find(".payment-name").First(); payment.Length() > 0 {
		pricing[order.PricingPaymentMethod] = helpers.CleanText(payment.Text())
	}

	if len(pricing) == 0 {
		return nil
	}
	return pricing
}

// blockContaining finds the deepest element whose text contains marker
// and walks the given number of levels up from it. Returns nil when the
// marker is absent.
func blockContaining(doc *goquery.Document, marker string, levelsUp int) *goquery.Selection {
	var deepest *goquery.Selection
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(s.Text(), marker) {
			deepest = s
		}
	})
	if deepest == nil {
		return nil
	}
	for i := 0; i < levelsUp; i++ {
		parent := deepest.Parent()
		if parent.Length() == 0 {
			break
		}
		deepest = parent
	}
	return deepest
}

// flattenHTML turns a markup fragment into plain text, with line breaks
// as spaces.
func flattenHTML(fragment string) string {
	txt := brRe.ReplaceAllString(fragment, " ")
	txt = anyTagRe.ReplaceAllString(txt, "")
	return html.UnescapeString(txt)
}
