package qdrant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// FieldMatch is a single payload equality requirement.
type FieldMatch struct {
	Field string
	Value any
}

// Eq builds a FieldMatch.
func Eq(field string, value any) FieldMatch {
	return FieldMatch{Field: field, Value: value}
}

// FilterGroup is an ordered list of equality pairs. In JSON it is an object
// whose key order is kept.
type FilterGroup []FieldMatch

// Group collects pairs into a FilterGroup.
func Group(pairs ...FieldMatch) FilterGroup {
	return FilterGroup(pairs)
}

// FilterConditions is the caller-facing filter: conditions in Must must all
// hold, none in MustNot may hold, and at least one in Should must hold.
//
// JSON form:
//
//	{"must":[{"source":"web"}],"must_not":[{"lang":"de"}],"should":[]}
type FilterConditions struct {
	Must    []FilterGroup `json:"must,omitempty"`
	MustNot []FilterGroup `json:"must_not,omitempty"`
	Should  []FilterGroup `json:"should,omitempty"`
}

// IsEmpty reports whether f constrains nothing.
func (f *FilterConditions) IsEmpty() bool {
	if f == nil {
		return true
	}
	return countPairs(f.Must) == 0 && countPairs(f.MustNot) == 0 && countPairs(f.Should) == 0
}

// TranslateFilters converts f into Qdrant conditions. Every pair becomes one
// keyword match and ordering of groups and pairs is kept. A nil f yields
// three empty lists.
func TranslateFilters(f *FilterConditions) (must, mustNot, should []*qdrant.Condition) {
	if f == nil {
		return []*qdrant.Condition{}, []*qdrant.Condition{}, []*qdrant.Condition{}
	}
	return translateGroups(f.Must), translateGroups(f.MustNot), translateGroups(f.Should)
}

// BuildFilter returns the Qdrant filter for f, or nil when f is empty.
func BuildFilter(f *FilterConditions) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}
	must, mustNot, should := TranslateFilters(f)
	return &qdrant.Filter{Must: must, MustNot: mustNot, Should: should}
}

func translateGroups(groups []FilterGroup) []*qdrant.Condition {
	conds := make([]*qdrant.Condition, 0, countPairs(groups))
	for _, g := range groups {
		for _, m := range g {
			conds = append(conds, qdrant.NewMatch(m.Field, matchValue(m.Value)))
		}
	}
	return conds
}

func countPairs(groups []FilterGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	return n
}

// matchValue renders v the way it is stored as a keyword.
func matchValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case nil:
		return "null"
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// UnmarshalJSON decodes an object keeping its key order.
func (g *FilterGroup) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*g = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("filter group must be a JSON object, got %v", tok)
	}

	out := FilterGroup{}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected filter key %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("filter field %q: %w", key, err)
		}
		switch value.(type) {
		case map[string]any, []any:
			return fmt.Errorf("filter field %q: value must be a scalar", key)
		}
		out = append(out, FieldMatch{Field: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*g = out
	return nil
}

// MarshalJSON encodes g as an object in pair order.
func (g FilterGroup) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Field)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
