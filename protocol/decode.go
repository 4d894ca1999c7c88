// Package protocol converts between the mirror's wire messages and typed
// commands.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gitlab.com/linkinlog/queueMirror/store"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownKind = errors.New("unknown message kind")
)

// DecodeError describes an inbound message that was dropped.
type DecodeError struct {
	Kind string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("decode: %s", e.Err)
	}
	return fmt.Sprintf("decode %s: %s", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type Kind string

const (
	KindClientEvent Kind = "clientEvent"
	KindDataEvent   Kind = "dataEvent"
	KindCSVSync     Kind = "csvSync"
	KindDownload    Kind = "download"
)

type Command string

const (
	AddTop       Command = "addTop"
	AddBottom    Command = "addBottom"
	RemoveTop    Command = "removeTop"
	RemoveBottom Command = "removeBottom"
)

func (c Command) Valid() bool {
	switch c {
	case AddTop, AddBottom, RemoveTop, RemoveBottom:
		return true
	}
	return false
}

// Message is one of ClientEvent, DataEvent, CSVSync or Download.
type Message interface {
	Kind() Kind
}

type ClientEvent struct {
	Peers int
}

type DataEvent struct {
	Command Command
	Key     string
	Values  []string
}

type CSVSync struct {
	Data store.Snapshot
}

type Download struct {
	Value string
}

func (ClientEvent) Kind() Kind { return KindClientEvent }
func (DataEvent) Kind() Kind   { return KindDataEvent }
func (CSVSync) Kind() Kind     { return KindCSVSync }
func (Download) Kind() Kind    { return KindDownload }

// inbound is the server's broadcast envelope. Field matching is
// case-insensitive, so "Values" and "values" both decode.
type inbound struct {
	Type    string
	Key     string
	Command string
	Values  []string
	Value   string
	// Data is only read for csvSync; other kinds carry other shapes here.
	Data json.RawMessage
}

// Decode parses one inbound frame. It never panics; anything it cannot
// turn into a Message comes back as a *DecodeError.
func Decode(raw []byte) (Message, error) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
	}

	switch Kind(in.Type) {
	case KindClientEvent:
		if len(in.Values) == 0 {
			return nil, malformed(in.Type, "missing peer count")
		}
		peers, err := strconv.Atoi(in.Values[0])
		if err != nil || peers < 0 {
			return nil, malformed(in.Type, fmt.Sprintf("bad peer count %q", in.Values[0]))
		}
		return ClientEvent{Peers: peers}, nil

	case KindDataEvent:
		cmd := Command(in.Command)
		if !cmd.Valid() {
			return nil, malformed(in.Type, fmt.Sprintf("unknown command %q", in.Command))
		}
		if in.Key == "" {
			return nil, malformed(in.Type, "missing key")
		}
		values := in.Values
		if values == nil {
			values = []string{}
		}
		return DataEvent{Command: cmd, Key: in.Key, Values: values}, nil

	case KindCSVSync:
		var snap store.Snapshot
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &snap); err != nil {
				return nil, malformed(in.Type, err.Error())
			}
		}
		return CSVSync{Data: snap}, nil

	case KindDownload:
		return Download{Value: in.Value}, nil
	}

	if in.Type == "" {
		return nil, malformed("", "missing Type")
	}
	return nil, &DecodeError{Kind: in.Type, Err: ErrUnknownKind}
}

func malformed(kind, reason string) error {
	return &DecodeError{Kind: kind, Err: fmt.Errorf("%w: %s", ErrMalformed, reason)}
}
