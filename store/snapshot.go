package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

type Entry struct {
	Key    string
	Values []string
}

// Snapshot is a full key -> values mapping that remembers key order. Its
// JSON form is a plain object; decoding keeps document order.
type Snapshot []Entry

// SnapshotFromMap orders keys lexically, the way encoding/json writes maps.
func SnapshotFromMap(m map[string][]string) Snapshot {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	snap := make(Snapshot, 0, len(keys))
	for _, k := range keys {
		snap = append(snap, Entry{Key: k, Values: m[k]})
	}
	return snap
}

func (s Snapshot) Map() map[string][]string {
	m := make(map[string][]string, len(s))
	for _, e := range s {
		m[e.Key] = e.Values
	}
	return m
}

func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, e := range s {
		keys = append(keys, e.Key)
	}
	return keys
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		values := e.Values
		if values == nil {
			values = []string{}
		}
		vals, err := json.Marshal(values)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(vals)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts null as an empty snapshot. A repeated key keeps its
// first position and its last values.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("snapshot: expected object, got %v", tok)
	}

	out := Snapshot{}
	index := map[string]int{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("snapshot: expected key, got %v", tok)
		}

		var values []string
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("snapshot key %q: %w", key, err)
		}
		if values == nil {
			values = []string{}
		}

		if i, seen := index[key]; seen {
			out[i].Values = values
			continue
		}
		index[key] = len(out)
		out = append(out, Entry{Key: key, Values: values})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = out
	return nil
}
