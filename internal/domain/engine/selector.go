package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Selector picks recipe map entries by ingredient type and/or name.
// Both lists are stored lowercased. An empty selector selects everything.
type Selector struct {
	ByType []string `json:"by_type,omitempty"`
	ByName []string `json:"by_name,omitempty"`
}

// IsEmpty reports whether neither list has entries
func (s Selector) IsEmpty() bool {
	return len(s.ByType) == 0 && len(s.ByName) == 0
}

// Matches reports whether an entry is selected. by_type compares against
// the type label or the type id hex; the two lists are a union.
func (s Selector) Matches(e *Entry) bool {
	if s.IsEmpty() {
		return true
	}
	name := NormalizeToken(e.Name)
	for _, n := range s.ByName {
		if n == name {
			return true
		}
	}
	typeLabel := strings.ToLower(strings.TrimSpace(e.Type))
	typeID := ""
	if e.TypeID != nil {
		typeID = e.TypeID.Hex()
	}
	for _, t := range s.ByType {
		if t == typeLabel || (typeID != "" && t == typeID) {
			return true
		}
	}
	return false
}

// ParseSelector reads a stored target_selector. Anything that is not a
// key/value structure yields the empty selector.
func ParseSelector(raw any) Selector {
	doc, ok := asDocument(raw)
	if !ok {
		return Selector{}
	}
	return Selector{
		ByType: stringList(doc["by_type"], func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }),
		ByName: stringList(doc["by_name"], NormalizeToken),
	}
}

// PlanStatus distinguishes a missing replacement plan from a broken one
type PlanStatus int

const (
	PlanAbsent PlanStatus = iota
	PlanValid
	PlanMalformed
)

// Replacement is one (ingredient, proportion) pair of a REPLACE rule
type Replacement struct {
	Name       string          `json:"name"`
	Proportion decimal.Decimal `json:"proportion"`
}

// ReplacementPlan is the parsed form of a modifier's replaces field
type ReplacementPlan struct {
	Targets []Replacement `json:"targets"`
	Status  PlanStatus    `json:"-"`
}

// ParseReplacementPlan reads {to: [[name, proportion], ...]}. Pairs may
// also be written as {name, proportion} documents. A nil value or a
// document without "to" is absent; any other shape is malformed.
func ParseReplacementPlan(raw any) ReplacementPlan {
	if raw == nil {
		return ReplacementPlan{Status: PlanAbsent}
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return ReplacementPlan{Status: PlanAbsent}
	}
	doc, ok := asDocument(raw)
	if !ok {
		return ReplacementPlan{Status: PlanMalformed}
	}
	to, present := doc["to"]
	if !present || to == nil {
		return ReplacementPlan{Status: PlanAbsent}
	}
	pairs, ok := asList(to)
	if !ok {
		return ReplacementPlan{Status: PlanMalformed}
	}

	plan := ReplacementPlan{Status: PlanValid, Targets: make([]Replacement, 0, len(pairs))}
	for _, p := range pairs {
		r, ok := parseReplacement(p)
		if !ok {
			return ReplacementPlan{Status: PlanMalformed}
		}
		plan.Targets = append(plan.Targets, r)
	}
	return plan
}

func parseReplacement(raw any) (Replacement, bool) {
	if pair, ok := asList(raw); ok {
		if len(pair) != 2 {
			return Replacement{}, false
		}
		name, ok := pair[0].(string)
		if !ok || strings.TrimSpace(name) == "" {
			return Replacement{}, false
		}
		prop, ok := toDecimal(pair[1])
		if !ok || prop.IsNegative() {
			return Replacement{}, false
		}
		return Replacement{Name: strings.TrimSpace(name), Proportion: prop}, true
	}
	if doc, ok := asDocument(raw); ok {
		name, _ := doc["name"].(string)
		prop, ok := toDecimal(doc["proportion"])
		if strings.TrimSpace(name) == "" || !ok || prop.IsNegative() {
			return Replacement{}, false
		}
		return Replacement{Name: strings.TrimSpace(name), Proportion: prop}, true
	}
	return Replacement{}, false
}

// asDocument accepts the shapes a stored JSON-ish field shows up in:
// Go maps, bson documents, yaml maps and JSON text.
func asDocument(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case bson.M:
		return map[string]any(v), true
	case bson.D:
		out := make(map[string]any, len(v))
		for _, e := range v {
			out[e.Key] = e.Value
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	case string:
		var doc map[string]any
		if err := json.Unmarshal([]byte(v), &doc); err != nil || doc == nil {
			return nil, false
		}
		return doc, true
	case []byte:
		return asDocument(string(v))
	}
	return nil, false
}

func asList(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case bson.A:
		return []any(v), true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// stringList reads a list of names or ids. A bare string is a one-item list.
func stringList(raw any, norm func(string) string) []string {
	if raw == nil {
		return nil
	}
	if s, ok := raw.(string); ok {
		if s = norm(s); s != "" {
			return []string{s}
		}
		return nil
	}
	items, ok := asList(raw)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		switch v := item.(type) {
		case string:
			s = v
		case primitive.ObjectID:
			s = v.Hex()
		case nil:
			continue
		default:
			s = fmt.Sprint(v)
		}
		if s = norm(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toDecimal(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	case primitive.Decimal128:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	}
	return decimal.Zero, false
}
