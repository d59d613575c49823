package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"crossmarket/internal/errors"
)

// CSVOptions controls the CSV dialect
type CSVOptions struct {
	// Comma is the field delimiter
	Comma rune

	// Locale selects the decimal separator of numeric cells
	Locale language.Tag

	// BOM prefixes a UTF-8 byte order mark for spreadsheet imports
	BOM bool

	// Totals appends a separator line and a totals line
	Totals bool
}

// DefaultCSVOptions is the European spreadsheet dialect: ';' and decimal comma
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Comma: ';', Locale: language.Italian, BOM: true, Totals: true}
}

// ParseCSVOptions builds options from a delimiter and a BCP 47 locale
func ParseCSVOptions(delimiter, locale string) (CSVOptions, error) {
	opts := DefaultCSVOptions()
	if delimiter != "" {
		if delimiter == `\t` || delimiter == "tab" {
			delimiter = "\t"
		}
		r := []rune(delimiter)
		if len(r) != 1 || r[0] == '"' || r[0] == '\n' || r[0] == '\r' {
			return opts, errors.Newf(errors.TypeConfig, "invalid CSV delimiter %q", delimiter)
		}
		opts.Comma = r[0]
	}
	if locale != "" {
		tag, err := language.Parse(locale)
		if err != nil {
			return opts, errors.Config("invalid export locale", err).WithContext("locale", locale)
		}
		opts.Locale = tag
	}
	return opts, nil
}

var csvHeader = []string{
	"Item", "Title", "Route", "Channel",
	"Purchase Price", "Net Cost", "Target Price", "Fees", "Profit",
	"Margin %", "ROI %", "Score", "Velocity", "Competition",
	"Action", "Quantity", "Budget", "Expected Profit 30d", "Break Even Units",
	"Sustainability",
}

// CSVWriter writes rows in a locale-aware dialect
type CSVWriter struct {
	opts    CSVOptions
	printer *message.Printer
}

// NewCSVWriter creates a writer
func NewCSVWriter(opts CSVOptions) *CSVWriter {
	if opts.Comma == 0 {
		opts.Comma = ';'
	}
	return &CSVWriter{opts: opts, printer: message.NewPrinter(opts.Locale)}
}

// Write emits the header, one line per row and optionally the totals
func (w *CSVWriter) Write(out io.Writer, rows []Row) error {
	if w.opts.BOM {
		if _, err := io.WriteString(out, "\ufeff"); err != nil {
			return errors.Export("failed to write CSV", err)
		}
	}
	cw := csv.NewWriter(out)
	cw.Comma = w.opts.Comma

	if err := cw.Write(csvHeader); err != nil {
		return errors.Export("failed to write CSV header", err)
	}
	for _, r := range rows {
		if err := cw.Write(w.record(r)); err != nil {
			return errors.Export("failed to write CSV row", err).WithContext("item_id", r.ItemID)
		}
	}
	if w.opts.Totals && len(rows) > 0 {
		if err := w.writeTotals(cw, Totalize(rows)); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Export("failed to flush CSV", err)
	}
	return nil
}

func (w *CSVWriter) record(r Row) []string {
	return []string{
		r.ItemID,
		cleanText(r.Title),
		r.Route,
		string(r.Channel),
		w.money(r.PurchasePrice),
		w.money(r.NetCost),
		w.money(r.TargetPrice),
		w.money(r.Fees),
		w.money(r.Profit),
		w.ratio(r.MarginPct),
		w.ratio(r.ROIPct),
		w.ratio(r.Score),
		w.ratio(r.Velocity),
		w.ratio(r.Competition),
		string(r.Action),
		strconv.Itoa(r.Quantity),
		w.money(r.Budget),
		w.money(r.ExpectedProfit30d),
		r.BreakEvenUnits,
		string(r.Sustainability),
	}
}

func (w *CSVWriter) writeTotals(cw *csv.Writer, t Totals) error {
	separator := make([]string, len(csvHeader))
	for i := range separator {
		separator[i] = "---"
	}
	separator[0] = "SUMMARY"

	totals := make([]string, len(csvHeader))
	totals[0] = "TOTALS"
	totals[1] = fmt.Sprintf("Total opportunities: %d", t.Count)
	totals[2] = fmt.Sprintf("BUY: %d | MONITOR: %d | SKIP: %d", t.BuyNow, t.Monitor, t.Skip)
	totals[10] = w.ratio(t.AvgROI)
	totals[14] = "Return: " + w.ratio(t.ReturnPct) + "%"
	totals[16] = w.money(t.Budget)
	totals[17] = w.money(t.ExpectedProfit30d)

	if err := cw.Write(separator); err != nil {
		return errors.Export("failed to write CSV totals", err)
	}
	if err := cw.Write(totals); err != nil {
		return errors.Export("failed to write CSV totals", err)
	}
	return nil
}

func (w *CSVWriter) money(d decimal.Decimal) string {
	f, _ := d.Float64()
	return w.printer.Sprint(number.Decimal(f, number.Scale(2), number.NoSeparator()))
}

func (w *CSVWriter) ratio(f float64) string {
	return w.printer.Sprint(number.Decimal(f, number.Scale(1), number.NoSeparator()))
}

// cleanText flattens control characters that break spreadsheet rows
func cleanText(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', '\t':
			return ' '
		}
		return r
	}, s)
}
