// Package square reads Square item sales CSV exports.
package square

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ak/cafeinv/internal/domain/services"
	"github.com/shopspring/decimal"
)

// Column names in the item sales export
const (
	ColDate          = "Date"
	ColTime          = "Time"
	ColTimeZone      = "Time Zone"
	ColItem          = "Item"
	ColPricePoint    = "Price Point Name"
	ColModifiers     = "Modifiers Applied"
	ColQty           = "Qty"
	ColGrossSales    = "Gross Sales"
	ColNetSales      = "Net Sales"
	ColTransactionID = "Transaction ID"
	ColToken         = "Token"
	ColSKU           = "SKU"
)

const bom = "\ufeff"

var dateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "01/02/2006 15:04:05", "01/02/2006 15:04"}

// Reader turns CSV rows into sales lines. Date and Time are read in the
// configured location; the Time Zone column is kept only in the raw row.
type Reader struct {
	csv    *csv.Reader
	header []string
	index  map[string]int
	loc    *time.Location
	row    int
}

var _ services.LineSource = (*Reader)(nil)

// NewReader reads the header row. A UTF-8 byte order mark is tolerated.
func NewReader(r io.Reader, loc *time.Location) (*Reader, error) {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("square csv is empty")
		}
		return nil, fmt.Errorf("failed to read square header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, bom))
		header[i] = h
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	if _, ok := index[ColItem]; !ok {
		return nil, fmt.Errorf("square csv has no %q column", ColItem)
	}
	return &Reader{csv: cr, header: header, index: index, loc: loc, row: 1}, nil
}

func (r *Reader) Next(ctx context.Context) (services.LineItem, error) {
	if err := ctx.Err(); err != nil {
		return services.LineItem{}, err
	}
	record, err := r.csv.Read()
	r.row++
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return services.LineItem{}, &services.RowError{Row: r.row, Err: err}
		}
		return services.LineItem{}, err
	}

	line, err := r.parse(record)
	if err != nil {
		return services.LineItem{}, &services.RowError{Row: r.row, Err: err}
	}
	return line, nil
}

func (r *Reader) get(record []string, col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (r *Reader) parse(record []string) (services.LineItem, error) {
	raw := make(map[string]string, len(r.header))
	for i, h := range r.header {
		if i < len(record) && h != "" {
			raw[h] = record[i]
		}
	}

	item := r.get(record, ColItem)
	if item == "" {
		return services.LineItem{}, errors.New("missing item name")
	}

	qty, err := ParseQuantity(r.get(record, ColQty))
	if err != nil {
		return services.LineItem{}, err
	}
	gross, err := ParseMoney(r.get(record, ColGrossSales))
	if err != nil {
		return services.LineItem{}, fmt.Errorf("gross sales: %w", err)
	}
	date, err := r.parseDate(r.get(record, ColDate), r.get(record, ColTime))
	if err != nil {
		return services.LineItem{}, err
	}

	orderID := r.get(record, ColTransactionID)
	if orderID == "" {
		orderID = r.get(record, ColToken)
	}

	unit := gross
	if qty > 0 {
		unit = gross.Div(decimal.NewFromInt(int64(qty))).Round(2)
	}

	return services.LineItem{
		OrderID:    orderID,
		OrderDate:  date,
		ItemName:   item,
		PricePoint: r.get(record, ColPricePoint),
		Modifiers:  SplitModifiers(r.get(record, ColModifiers)),
		Quantity:   qty,
		GrossSales: gross,
		UnitPrice:  unit,
		SKU:        r.get(record, ColSKU),
		RawRow:     raw,
	}, nil
}

func (r *Reader) parseDate(date, clock string) (time.Time, error) {
	if date == "" {
		return time.Time{}, nil
	}
	if clock == "" {
		clock = "00:00:00"
	}
	value := date + " " + clock
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, r.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

// ParseMoney reads "$3.50", "1,200.00" or "-$2.00". Blank is zero.
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// ParseQuantity reads a Qty cell. Blank means one; fractions are
// truncated.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return int(d.IntPart()), nil
}

// SplitModifiers splits the comma separated Modifiers Applied cell
func SplitModifiers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
