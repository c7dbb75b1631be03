// Package shopify reads Shopify order exports in the Admin API JSON shape.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ak/cafeinv/internal/domain/services"
	"github.com/shopspring/decimal"
)

// Order is the subset of a Shopify order that carries sales lines
type Order struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	CreatedAt   string          `json:"created_at"`
	ProcessedAt string          `json:"processed_at"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	LineItems   []LineItem      `json:"line_items"`
}

type LineItem struct {
	Title        string          `json:"title"`
	Name         string          `json:"name"`
	VariantTitle string          `json:"variant_title"`
	SKU          string          `json:"sku"`
	Quantity     *int            `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Properties   []Property      `json:"properties"`
}

// Property is a line item customization. Names starting with an
// underscore are private to the storefront and ignored.
type Property struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type envelope struct {
	Orders []Order `json:"orders"`
}

// Reader flattens orders into sales lines. Each line is one row; an
// order without an id or date yields one row error per line item.
type Reader struct {
	lines []services.LineItem
	errs  map[int]error
	next  int
}

var _ services.LineSource = (*Reader)(nil)

// NewReader decodes a JSON array of orders or an {"orders": [...]} object.
func NewReader(r io.Reader, loc *time.Location) (*Reader, error) {
	if loc == nil {
		loc = time.UTC
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read shopify export: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Reader{}, nil
	}

	var orders []Order
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &orders); err != nil {
			return nil, fmt.Errorf("failed to decode shopify orders: %w", err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("failed to decode shopify orders: %w", err)
		}
		orders = env.Orders
	default:
		return nil, errors.New("shopify export must be a JSON array or object")
	}

	rd := &Reader{errs: make(map[int]error)}
	for _, o := range orders {
		rd.add(o, loc)
	}
	return rd, nil
}

func (r *Reader) add(o Order, loc *time.Location) {
	orderID := o.orderID()
	created := o.CreatedAt
	if created == "" {
		created = o.ProcessedAt
	}

	var orderErr error
	date, err := ParseTime(created, loc)
	switch {
	case orderID == "":
		orderErr = errors.New("order has no id")
	case created == "":
		orderErr = fmt.Errorf("order %s has no created_at", orderID)
	case err != nil:
		orderErr = fmt.Errorf("order %s: %w", orderID, err)
	}

	for _, li := range o.LineItems {
		row := len(r.lines) + 1
		if orderErr != nil {
			r.errs[row] = orderErr
			r.lines = append(r.lines, services.LineItem{})
			continue
		}
		r.lines = append(r.lines, li.toLine(orderID, date))
	}
}

func (o Order) orderID() string {
	raw := bytes.TrimSpace(o.ID)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			if s != "" {
				return s
			}
		} else {
			return string(raw)
		}
	}
	return strings.TrimSpace(o.Name)
}

func (li LineItem) toLine(orderID string, date time.Time) services.LineItem {
	name := strings.TrimSpace(li.Title)
	if name == "" {
		name = strings.TrimSpace(li.Name)
	}
	if name == "" {
		name = strings.TrimSpace(li.SKU)
	}
	qty := 1
	if li.Quantity != nil {
		qty = *li.Quantity
	}

	var mods []string
	for _, p := range li.Properties {
		if strings.HasPrefix(p.Name, "_") {
			continue
		}
		if v := strings.TrimSpace(fmt.Sprint(p.Value)); v != "" && p.Value != nil {
			mods = append(mods, v)
		}
	}

	return services.LineItem{
		OrderID:    orderID,
		OrderDate:  date,
		ItemName:   name,
		PricePoint: strings.TrimSpace(li.VariantTitle),
		Modifiers:  mods,
		Quantity:   qty,
		GrossSales: li.Price.Mul(decimal.NewFromInt(int64(qty))),
		UnitPrice:  li.Price,
		SKU:        strings.TrimSpace(li.SKU),
		RawRow: map[string]string{
			"order_id":      orderID,
			"title":         li.Title,
			"variant_title": li.VariantTitle,
			"sku":           li.SKU,
		},
	}
}

func (r *Reader) Next(ctx context.Context) (services.LineItem, error) {
	if err := ctx.Err(); err != nil {
		return services.LineItem{}, err
	}
	if r.next >= len(r.lines) {
		return services.LineItem{}, io.EOF
	}
	r.next++
	if err, ok := r.errs[r.next]; ok {
		return services.LineItem{}, &services.RowError{Row: r.next, Err: err}
	}
	return r.lines[r.next-1], nil
}

// ParseTime reads an ISO-8601 timestamp. Values without an offset are
// taken to be in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
