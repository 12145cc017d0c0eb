package order

import "strconv"

// Pricing map keys. Every key is optional; a missing key means the
// charge was not present (or not extractable) on the order.
const (
	PricingSubtotal      = "subtotal"
	PricingServiceFee    = "service_fee"
	PricingDeliveryFee   = "delivery_fee"
	PricingTax           = "tax"
	PricingTotal         = "total"
	PricingPaymentMethod = "payment_method"
)

// OrderItem represents a single line item on an order. Quantity and
// price stay display text because the source formats them inconsistently.
type OrderItem struct {
	Quantity    string `json:"quantity"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

// Order represents one extracted catering order. ATGOrderID is the only
// field required for the order to be usable downstream; any other field
// may be empty when its extraction failed.
type Order struct {
	ATGOrderID           string            `json:"atg_order_id"`
	POID                 string            `json:"po_id,omitempty"`
	VendorName           string            `json:"vendor_name,omitempty"`
	CustomerName         string            `json:"customer_name,omitempty"`
	Address              string            `json:"address,omitempty"`
	DeliveryInfo         string            `json:"delivery_info,omitempty"`
	DeliveryInstructions string            `json:"delivery_instructions,omitempty"`
	DeliveryTimeRaw      string            `json:"delivery_time_raw,omitempty"`
	DeliveryISO          string            `json:"delivery_iso,omitempty"`
	DeliveryDate         string            `json:"delivery_date,omitempty"`
	DeliveryTime24h      string            `json:"delivery_time_24h,omitempty"`
	NumberOfPeople       string            `json:"number_of_people,omitempty"`
	CostPerPerson        string            `json:"cost_per_person,omitempty"`
	CreatedDate          string            `json:"created_date,omitempty"`
	Pricing              map[string]string `json:"pricing,omitempty"`
	Items                []OrderItem       `json:"items,omitempty"`

	// Provenance, for diagnostics and export only. Never part of identity.
	PageNumber    int `json:"page_number"`
	RowNumber     int `json:"row_number"`
	OrderSequence int `json:"order_sequence"`
}

// Key returns the stable key correlating this order with a calendar
// event, or "" when the order carries no identifier.
func (o *Order) Key(platform string) string {
	if o.ATGOrderID == "" {
		return ""
	}
	return platform + "-" + o.ATGOrderID
}

// PricingValue returns the display string for a pricing key, or ""
func (o *Order) PricingValue(key string) string {
	if o.Pricing == nil {
		return ""
	}
	return o.Pricing[key]
}

// FlatRow flattens the order to a single row for tabular export
func (o *Order) FlatRow() map[string]string {
	return map[string]string{
		"ATG_Order_ID":          o.ATGOrderID,
		"PO_ID":                 o.POID,
		"Vendor":                o.VendorName,
		"Customer_Name":         o.CustomerName,
		"Address":               o.Address,
		"Delivery_Info":         o.DeliveryInfo,
		"Delivery_Instructions": o.DeliveryInstructions,
		"Delivery_Time_Raw":     o.DeliveryTimeRaw,
		"Delivery_Date":         o.DeliveryDate,
		"Delivery_Time_24h":     o.DeliveryTime24h,
		"Delivery_ISO":          o.DeliveryISO,
		"Number_of_People":      o.NumberOfPeople,
		"Cost_per_Person":       o.CostPerPerson,
		"Subtotal":              o.PricingValue(PricingSubtotal),
		"Service_Fee":           o.PricingValue(PricingServiceFee),
		"Delivery_Fee":          o.PricingValue(PricingDeliveryFee),
		"Tax":                   o.PricingValue(PricingTax),
		"Total":                 o.PricingValue(PricingTotal),
		"Payment_Method":        o.PricingValue(PricingPaymentMethod),
		"Page_Number":           strconv.Itoa(o.PageNumber),
		"Row_Number":            strconv.Itoa(o.RowNumber),
		"Order_Sequence":        strconv.Itoa(o.OrderSequence),
	}
}

// FlatColumns is the column order for the Orders export sheet
var FlatColumns = []string{
	"ATG_Order_ID", "PO_ID", "Vendor", "Customer_Name", "Address",
	"Delivery_Info", "Delivery_Instructions", "Delivery_Time_Raw",
	"Delivery_Date", "Delivery_Time_24h", "Delivery_ISO",
	"Number_of_People", "Cost_per_Person", "Subtotal", "Service_Fee",
	"Delivery_Fee", "Tax", "Total", "Payment_Method",
	"Page_Number", "Row_Number", "Order_Sequence",
}

// ItemColumns is the column order for the Items export sheet
var ItemColumns = []string{"ATG_Order_ID", "Quantity", "Description", "Price"}

// ItemRows expands the order's items, each tagged with the order id
func (o *Order) ItemRows() []map[string]string {
	rows := make([]map[string]string, 0, len(o.Items))
	for _, it := range o.Items {
		rows = append(rows, map[string]string{
			"ATG_Order_ID": o.ATGOrderID,
			"Quantity":     it.Quantity,
			"Description":  it.Description,
			"Price":        it.Price,
		})
	}
	return rows
}
