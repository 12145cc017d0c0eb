package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"catercal/internal/order"
	"catercal/pkg/errors"
)

// Exporter writes scraped orders to timestamped files in a directory
type Exporter struct {
	outDir string
	now    func() time.Time
}

// NewExporter creates an exporter targeting outDir, creating it if needed
func NewExporter(outDir string) *Exporter {
	return &Exporter{
		outDir: outDir,
		now:    time.Now,
	}
}

type jsonEnvelope struct {
	ScrapeDate  string        `json:"scrape_date"`
	TotalOrders int           `json:"total_orders"`
	Orders      []order.Order `json:"orders"`
}

func (e *Exporter) ensureDir() error {
	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return errors.New(errors.ErrorTypeValidation, "export", "failed to create output directory", err)
	}
	return nil
}

func (e *Exporter) stamp() string {
	return e.now().Format("20060102_150405")
}

// WriteJSON dumps the full order list with a scrape-date envelope and
// returns the path written.
func (e *Exporter) WriteJSON(orders []order.Order) (string, error) {
	if err := e.ensureDir(); err != nil {
		return "", err
	}

	envelope := jsonEnvelope{
		ScrapeDate:  e.now().Format(time.RFC3339),
		TotalOrders: len(orders),
		Orders:      orders,
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", errors.New(errors.ErrorTypeValidation, "export", "failed to encode orders", err)
	}

	path := filepath.Join(e.outDir, "orders_export_"+e.stamp()+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.New(errors.ErrorTypeValidation, "export", "failed to write json export", err)
	}
	return path, nil
}

// WriteCSV writes the flattened Orders sheet and the per-line Items
// sheet and returns both paths.
func (e *Exporter) WriteCSV(orders []order.Order) (ordersPath, itemsPath string, err error) {
	if err := e.ensureDir(); err != nil {
		return "", "", err
	}
	stamp := e.stamp()

	ordersPath = filepath.Join(e.outDir, "orders_"+stamp+".csv")
	rows := make([]map[string]string, 0, len(orders))
	for i := range orders {
		rows = append(rows, orders[i].FlatRow())
	}
	if err := writeSheet(ordersPath, order.FlatColumns, rows); err != nil {
		return "", "", err
	}

	itemsPath = filepath.Join(e.outDir, "order_items_"+stamp+".csv")
	var itemRows []map[string]string
	for i := range orders {
		itemRows = append(itemRows, orders[i].ItemRows()...)
	}
	if err := writeSheet(itemsPath, order.ItemColumns, itemRows); err != nil {
		return "", "", err
	}
	return ordersPath, itemsPath, nil
}

func writeSheet(path string, columns []string, rows []map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(errors.ErrorTypeValidation, "export", "failed to create csv file", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return errors.New(errors.ErrorTypeValidation, "export", "failed to write csv header", err)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return errors.New(errors.ErrorTypeValidation, "export", "failed to write csv row", err)
		}
	}
	w.Flush()
	return w.Error()
}

// RenderSummary prints a per-order run summary table
func RenderSummary(w io.Writer, orders []order.Order) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Order ID", "Customer", "Delivery", "Items", "Total"})

	for i := range orders {
		o := &orders[i]
		delivery := o.DeliveryISO
		if delivery == "" {
			delivery = o.DeliveryTimeRaw
		}
		t.AppendRow(table.Row{
			o.OrderSequence,
			o.ATGOrderID,
			o.CustomerName,
			delivery,
			len(o.Items),
			o.PricingValue(order.PricingTotal),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "orders", len(orders)})
	t.Render()
}
