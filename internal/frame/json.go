package frame

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	apierrors "dataviz-backend/internal/errors"
)

// Float is a float64 that encodes NaN and Inf as JSON null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Floats is a []float64 that encodes NaN and Inf entries as JSON null.
type Floats []float64

func (fs Floats) MarshalJSON() ([]byte, error) {
	out := make([]Float, len(fs))
	for i, v := range fs {
		out[i] = Float(v)
	}
	return json.Marshal(out)
}

// FromJSON builds a DataFrame from either an array of records
// ([{"a":1},{"a":2}]) or an object of columns ({"a":[1,2]}).
// Column order follows first appearance in the document.
func FromJSON(raw []byte) (*DataFrame, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, apierrors.Validation("data", "invalid JSON: %v", err)
	}

	var b builder
	switch tok {
	case json.Delim('['):
		err = b.decodeRecords(dec)
	case json.Delim('{'):
		err = b.decodeColumns(dec)
	case nil:
		return nil, apierrors.Validation("data", "is required")
	default:
		return nil, apierrors.Validation("data", "must be an array of records or an object of columns")
	}
	if err != nil {
		return nil, err
	}
	if len(b.names) == 0 {
		return nil, apierrors.Validation("data", "is empty")
	}
	return b.build()
}

type builder struct {
	names  []string
	values map[string][]interface{}
	rows   int
}

func (b *builder) column(name string) []interface{} {
	if b.values == nil {
		b.values = make(map[string][]interface{})
	}
	vals, ok := b.values[name]
	if !ok {
		b.names = append(b.names, name)
	}
	return vals
}

func (b *builder) decodeRecords(dec *json.Decoder) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return apierrors.Validation("data", "invalid JSON: %v", err)
		}
		if tok != json.Delim('{') {
			return apierrors.Validation("data", "record %d is not an object", b.rows)
		}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return apierrors.Validation("data", "invalid JSON: %v", err)
			}
			key := keyTok.(string)
			var v interface{}
			if err := dec.Decode(&v); err != nil {
				return apierrors.Validation("data", "invalid JSON: %v", err)
			}
			vals := b.column(key)
			for len(vals) < b.rows {
				vals = append(vals, nil)
			}
			if len(vals) > b.rows {
				return apierrors.Validation("data", "record %d repeats key %q", b.rows, key)
			}
			b.values[key] = append(vals, v)
		}
		if _, err := dec.Token(); err != nil {
			return apierrors.Validation("data", "invalid JSON: %v", err)
		}
		b.rows++
	}
	for _, name := range b.names {
		vals := b.values[name]
		for len(vals) < b.rows {
			vals = append(vals, nil)
		}
		b.values[name] = vals
	}
	return nil
}

func (b *builder) decodeColumns(dec *json.Decoder) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return apierrors.Validation("data", "invalid JSON: %v", err)
		}
		key := keyTok.(string)
		var vals []interface{}
		if err := dec.Decode(&vals); err != nil {
			return apierrors.Validation("data", "column %q must be an array", key)
		}
		b.column(key)
		b.values[key] = vals
	}
	return nil
}

func (b *builder) build() (*DataFrame, error) {
	cols := make([]*Column, 0, len(b.names))
	for _, name := range b.names {
		col, err := inferColumn(name, b.values[name])
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return New(cols...)
}

// inferColumn makes a numeric column when every non-null value is a number.
func inferColumn(name string, vals []interface{}) (*Column, error) {
	numeric, present := true, false
	for _, v := range vals {
		switch v.(type) {
		case nil:
		case float64:
			present = true
		case string, bool:
			present = true
			numeric = false
		default:
			return nil, apierrors.InvalidColumns("column holds nested values", name)
		}
	}

	if numeric && present {
		floats := make([]float64, len(vals))
		for i, v := range vals {
			if f, ok := v.(float64); ok {
				floats[i] = f
			} else {
				floats[i] = math.NaN()
			}
		}
		return NewNumeric(name, floats), nil
	}

	strs := make([]string, len(vals))
	valid := make([]bool, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case string:
			strs[i], valid[i] = x, true
		case float64:
			strs[i], valid[i] = strconv.FormatFloat(x, 'f', -1, 64), true
		case bool:
			strs[i], valid[i] = strconv.FormatBool(x), true
		}
	}
	return NewCategorical(name, strs, valid), nil
}
