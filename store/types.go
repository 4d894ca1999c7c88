package store

import (
	"encoding/json"
	"fmt"
)

type Sequence uint64

type EventType byte

const (
	_ EventType = iota
	EventPushFront
	EventPushBack
	EventPopFront
	EventPopBack
	EventReplaceAll
	EventDrop
)

func (t EventType) String() string {
	switch t {
	case EventPushFront:
		return "PushFront"
	case EventPushBack:
		return "PushBack"
	case EventPopFront:
		return "PopFront"
	case EventPopBack:
		return "PopBack"
	case EventReplaceAll:
		return "ReplaceAll"
	case EventDrop:
		return "Drop"
	}
	return fmt.Sprintf("EventType(%d)", byte(t))
}

// Event is one applied mutation. Values carries pushed or popped values,
// Snapshot is only set for EventReplaceAll.
type Event struct {
	Sequence  Sequence
	EventType EventType
	Key       string
	Values    []string
	Snapshot  Snapshot
}

// Payload encodes the part of the event that is not a fixed-width field.
func (e Event) Payload() ([]byte, error) {
	if e.EventType == EventReplaceAll {
		return json.Marshal(e.Snapshot)
	}
	values := e.Values
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

// SetPayload is the inverse of Payload.
func (e *Event) SetPayload(data []byte) error {
	if e.EventType == EventReplaceAll {
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("bad snapshot payload: %w", err)
		}
		e.Snapshot = snap
		return nil
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("bad values payload: %w", err)
	}
	e.Values = values
	return nil
}

// Apply replays e against kv.
func (e Event) Apply(kv *SequenceStore) error {
	switch e.EventType {
	case EventPushFront:
		return kv.PushFront(e.Key, e.Values)
	case EventPushBack:
		return kv.PushBack(e.Key, e.Values)
	case EventPopFront:
		_, err := kv.PopFront(e.Key)
		return err
	case EventPopBack:
		_, err := kv.PopBack(e.Key)
		return err
	case EventReplaceAll:
		return kv.ReplaceAll(e.Snapshot)
	case EventDrop:
		return kv.Drop(e.Key)
	}
	return fmt.Errorf("unknown event type %v", e.EventType)
}
