package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Row is one captured record. Cells keep the order in which they were captured
// or decoded, and hold their raw JSON so numbers survive without float rounding.
type Row struct {
	cells *orderedmap.OrderedMap[string, json.RawMessage]
}

func NewRow() *Row {
	return &Row{cells: orderedmap.New[string, json.RawMessage]()}
}

// Set stores v under col, appending col if it is new.
func (r *Row) Set(col string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode column %s: %w", col, err)
	}
	r.init()
	r.cells.Set(col, json.RawMessage(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))))
	return nil
}

// Columns returns the column names in capture order.
func (r *Row) Columns() []string {
	if r == nil || r.cells == nil {
		return nil
	}
	cols := make([]string, 0, r.cells.Len())
	for p := r.cells.Oldest(); p != nil; p = p.Next() {
		cols = append(cols, p.Key)
	}
	return cols
}

// Value decodes the cell for col. Numbers decode as json.Number and arrays as
// []any. Objects stay json.RawMessage so their key order and text survive.
// A missing column reports ok=false.
func (r *Row) Value(col string) (v any, ok bool) {
	if r == nil || r.cells == nil {
		return nil, false
	}
	raw, ok := r.cells.Get(col)
	if !ok {
		return nil, false
	}
	v, err := decodeCell(raw)
	if err != nil {
		// Undecodable cells fall back to their raw text.
		return string(raw), true
	}
	return v, true
}

func decodeCell(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty cell")
	}
	switch trimmed[0] {
	case '{':
		if !json.Valid(trimmed) {
			return nil, errors.New("invalid object")
		}
		return json.RawMessage(trimmed), nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := decodeCell(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *Row) Len() int {
	if r == nil || r.cells == nil {
		return 0
	}
	return r.cells.Len()
}

func (r *Row) MarshalJSON() ([]byte, error) {
	r.init()
	return r.cells.MarshalJSON()
}

func (r *Row) UnmarshalJSON(data []byte) error {
	r.cells = orderedmap.New[string, json.RawMessage]()
	return r.cells.UnmarshalJSON(data)
}

func (r *Row) init() {
	if r.cells == nil {
		r.cells = orderedmap.New[string, json.RawMessage]()
	}
}
