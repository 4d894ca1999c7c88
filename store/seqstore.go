package store

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/linkinlog/queueMirror/env"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SequenceStore maps keys to ordered sequences of opaque values. Keys
// iterate in the order they were first created.
type SequenceStore struct {
	lock      *sync.Mutex
	keys      []string
	m         map[string][]string
	telemetry bool
}

func New(telemetry bool) *SequenceStore {
	m := make(map[string][]string)
	lock := &sync.Mutex{}

	return &SequenceStore{lock: lock, m: m, telemetry: telemetry}
}

// PushFront prepends values, keeping their relative order: element i of
// values ends up at position i.
func (k *SequenceStore) PushFront(key string, values []string) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	sp := k.startSpan(fmt.Sprintf("PushFront(%s)", key),
		attribute.String("key", key),
		attribute.Int("values", len(values)),
	)
	if sp != nil {
		defer sp.End()
	}

	old := k.m[key]
	seq := make([]string, 0, len(values)+len(old))
	seq = append(seq, values...)
	seq = append(seq, old...)
	k.set(key, seq)

	succeeded(sp, true)
	return nil
}

func (k *SequenceStore) PushBack(key string, values []string) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	sp := k.startSpan(fmt.Sprintf("PushBack(%s)", key),
		attribute.String("key", key),
		attribute.Int("values", len(values)),
	)
	if sp != nil {
		defer sp.End()
	}

	old := k.m[key]
	seq := make([]string, 0, len(old)+len(values))
	seq = append(seq, old...)
	seq = append(seq, values...)
	k.set(key, seq)

	succeeded(sp, true)
	return nil
}

func (k *SequenceStore) PopFront(key string) (string, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	sp := k.startSpan(fmt.Sprintf("PopFront(%s)", key), attribute.String("key", key))
	if sp != nil {
		defer sp.End()
	}

	seq, err := k.poppable("PopFront", key)
	if err != nil {
		succeeded(sp, false)
		return "", err
	}

	value := seq[0]
	k.m[key] = seq[1:]

	succeeded(sp, true)
	return value, nil
}

func (k *SequenceStore) PopBack(key string) (string, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	sp := k.startSpan(fmt.Sprintf("PopBack(%s)", key), attribute.String("key", key))
	if sp != nil {
		defer sp.End()
	}

	seq, err := k.poppable("PopBack", key)
	if err != nil {
		succeeded(sp, false)
		return "", err
	}

	last := len(seq) - 1
	value := seq[last]
	k.m[key] = seq[:last:last]

	succeeded(sp, true)
	return value, nil
}

// ReplaceAll installs snap as the whole store: keys missing from snap are
// dropped and key order becomes snap's order.
func (k *SequenceStore) ReplaceAll(snap Snapshot) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	sp := k.startSpan("ReplaceAll", attribute.Int("keys", len(snap)))
	if sp != nil {
		defer sp.End()
	}

	keys := make([]string, 0, len(snap))
	m := make(map[string][]string, len(snap))
	for _, e := range snap {
		if _, dup := m[e.Key]; !dup {
			keys = append(keys, e.Key)
		}
		seq := make([]string, len(e.Values))
		copy(seq, e.Values)
		m[e.Key] = seq
	}

	k.keys = keys
	k.m = m

	succeeded(sp, true)
	return nil
}

func (k *SequenceStore) Drop(key string) error {
	k.lock.Lock()
	defer k.lock.Unlock()

	sp := k.startSpan(fmt.Sprintf("Drop(%s)", key), attribute.String("key", key))
	if sp != nil {
		defer sp.End()
	}

	if _, ok := k.m[key]; ok {
		delete(k.m, key)
		for i, existing := range k.keys {
			if existing == key {
				k.keys = append(k.keys[:i], k.keys[i+1:]...)
				break
			}
		}
	}

	succeeded(sp, true)
	return nil
}

// Get returns a copy of the sequence stored under key.
func (k *SequenceStore) Get(key string) ([]string, error) {
	k.lock.Lock()
	defer k.lock.Unlock()

	seq, ok := k.m[key]
	if !ok {
		return nil, ErrNoSuchKey
	}

	out := make([]string, len(seq))
	copy(out, seq)
	return out, nil
}

func (k *SequenceStore) Has(key string) bool {
	k.lock.Lock()
	defer k.lock.Unlock()

	_, ok := k.m[key]
	return ok
}

func (k *SequenceStore) Len(key string) int {
	k.lock.Lock()
	defer k.lock.Unlock()

	return len(k.m[key])
}

func (k *SequenceStore) Keys() []string {
	k.lock.Lock()
	defer k.lock.Unlock()

	out := make([]string, len(k.keys))
	copy(out, k.keys)
	return out
}

func (k *SequenceStore) Snapshot() Snapshot {
	k.lock.Lock()
	defer k.lock.Unlock()

	snap := make(Snapshot, 0, len(k.keys))
	for _, key := range k.keys {
		seq := make([]string, len(k.m[key]))
		copy(seq, k.m[key])
		snap = append(snap, Entry{Key: key, Values: seq})
	}
	return snap
}

func (k *SequenceStore) set(key string, seq []string) {
	if _, ok := k.m[key]; !ok {
		k.keys = append(k.keys, key)
	}
	k.m[key] = seq
}

func (k *SequenceStore) poppable(op, key string) ([]string, error) {
	seq, ok := k.m[key]
	if !ok {
		return nil, &OutOfSyncError{Op: op, Key: key, Reason: "no such key"}
	}
	if len(seq) == 0 {
		return nil, &OutOfSyncError{Op: op, Key: key, Reason: "sequence is empty"}
	}
	return seq, nil
}

func (k *SequenceStore) startSpan(name string, attrs ...attribute.KeyValue) trace.Span {
	if !k.telemetry {
		return nil
	}

	tr := otel.GetTracerProvider().Tracer(env.ServiceName())
	_, sp := tr.Start(context.Background(), name, trace.WithAttributes(attrs...))
	return sp
}

func succeeded(sp trace.Span, ok bool) {
	if sp != nil {
		sp.SetAttributes(attribute.Bool("success", ok))
	}
}
