package partial

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
)

// LookupMissError reports a scenario key absent from a cache table.
type LookupMissError struct {
	Table string
	Key   string
}

func (e *LookupMissError) Error() string {
	return fmt.Sprintf("partial: %s has no entry for %s", e.Table, e.Key)
}

// Table is a typed map from a composite key to a cached value.
type Table[K comparable, V any] struct {
	name    string
	entries map[K]V
}

// NewTable creates an empty named table.
func NewTable[K comparable, V any](name string) *Table[K, V] {
	return &Table[K, V]{name: name, entries: make(map[K]V)}
}

// Name returns the table name used in lookup errors.
func (t *Table[K, V]) Name() string { return t.name }

// Put stores v under k.
func (t *Table[K, V]) Put(k K, v V) {
	t.entries[k] = v
}

// Get returns the value for k or a *LookupMissError.
func (t *Table[K, V]) Get(k K) (V, error) {
	v, ok := t.entries[k]
	if !ok {
		return v, &LookupMissError{Table: t.name, Key: fmt.Sprintf("%+v", k)}
	}
	return v, nil
}

// Len returns the number of entries.
func (t *Table[K, V]) Len() int { return len(t.entries) }

type tableEntry[K comparable, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

// MarshalJSON writes entries as a key-sorted array so equal tables encode
// to equal bytes.
func (t *Table[K, V]) MarshalJSON() ([]byte, error) {
	type encoded struct {
		key  []byte
		data json.RawMessage
	}
	out := make([]encoded, 0, len(t.entries))
	for k, v := range t.entries {
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, eris.Wrapf(err, "partial: encode %s key", t.name)
		}
		data, err := json.Marshal(tableEntry[K, V]{Key: k, Value: v})
		if err != nil {
			return nil, eris.Wrapf(err, "partial: encode %s entry %s", t.name, kb)
		}
		out = append(out, encoded{key: kb, data: data})
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].key, out[j].key) < 0 })

	raw := make([]json.RawMessage, len(out))
	for i, e := range out {
		raw[i] = e.data
	}
	return json.Marshal(raw)
}

// UnmarshalJSON replaces the table contents, keeping its name.
func (t *Table[K, V]) UnmarshalJSON(data []byte) error {
	var entries []tableEntry[K, V]
	if err := json.Unmarshal(data, &entries); err != nil {
		return eris.Wrapf(err, "partial: decode %s", t.name)
	}
	t.entries = make(map[K]V, len(entries))
	for _, e := range entries {
		t.entries[e.Key] = e.Value
	}
	return nil
}
