package models

import (
	"encoding/json"
	"maps"
	"slices"
)

// DocSet is a string map that remembers insertion order.
// Re-setting an existing key keeps its original position.
type DocSet struct {
	keys   []string
	values map[string]string
}

// Set stores value under key.
func (d *DocSet) Set(key, value string) {
	if d.values == nil {
		d.values = make(map[string]string)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value for key.
func (d DocSet) Get(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (d DocSet) Keys() []string {
	return slices.Clone(d.keys)
}

// Len returns the number of entries.
func (d DocSet) Len() int {
	return len(d.keys)
}

// Each calls fn for every entry in insertion order.
func (d DocSet) Each(fn func(key, value string)) {
	for _, k := range d.keys {
		fn(k, d.values[k])
	}
}

// Clone returns an independent copy.
func (d DocSet) Clone() DocSet {
	return DocSet{keys: slices.Clone(d.keys), values: maps.Clone(d.values)}
}

type docEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MarshalJSON encodes the set as an ordered list of entries.
func (d DocSet) MarshalJSON() ([]byte, error) {
	entries := make([]docEntry, 0, len(d.keys))
	for _, k := range d.keys {
		entries = append(entries, docEntry{Key: k, Value: d.values[k]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes an ordered list of entries.
func (d *DocSet) UnmarshalJSON(data []byte) error {
	var entries []docEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*d = DocSet{}
	for _, e := range entries {
		d.Set(e.Key, e.Value)
	}
	return nil
}
