package models

import "encoding/json"

// HeaderField is a single header line as received.
type HeaderField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HeaderMap is an ordered mapping from header name to value for one response.
// Names are case-sensitive as received. Setting an existing name replaces its
// value but keeps the position of its first occurrence.
//
// The zero value is an empty map ready to use.
type HeaderMap struct {
	fields []HeaderField
	index  map[string]int
}

// NewHeaderMap returns an empty HeaderMap
func NewHeaderMap() *HeaderMap {
	return &HeaderMap{}
}

// Set stores value under name, overwriting any earlier value (last write wins)
func (h *HeaderMap) Set(name, value string) {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	if i, ok := h.index[name]; ok {
		h.fields[i].Value = value
		return
	}
	h.index[name] = len(h.fields)
	h.fields = append(h.fields, HeaderField{Name: name, Value: value})
}

// Get returns the value for name and whether it was present
func (h *HeaderMap) Get(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	i, ok := h.index[name]
	if !ok {
		return "", false
	}
	return h.fields[i].Value, true
}

// Has reports whether name is present
func (h *HeaderMap) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Len returns the number of distinct header names
func (h *HeaderMap) Len() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}

// Names returns the header names in first-seen order
func (h *HeaderMap) Names() []string {
	if h == nil {
		return nil
	}
	names := make([]string, len(h.fields))
	for i, f := range h.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns a copy of the header fields in first-seen order
func (h *HeaderMap) Fields() []HeaderField {
	if h == nil {
		return nil
	}
	out := make([]HeaderField, len(h.fields))
	copy(out, h.fields)
	return out
}

// MarshalJSON encodes the map as an ordered array of fields
func (h *HeaderMap) MarshalJSON() ([]byte, error) {
	fields := h.Fields()
	if fields == nil {
		fields = []HeaderField{}
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes an ordered array of fields, applying last-write-wins
func (h *HeaderMap) UnmarshalJSON(data []byte) error {
	var fields []HeaderField
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*h = HeaderMap{}
	for _, f := range fields {
		h.Set(f.Name, f.Value)
	}
	return nil
}

// Batch holds one HeaderMap per successfully fetched target.
// Failed targets are absent, so its length may be less than the target count.
type Batch []*HeaderMap
