// Package mirror applies the server's event stream to a local replica of
// every queue and keeps one rendered table per queue in step with it.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/linkinlog/queueMirror/logger"
	"gitlab.com/linkinlog/queueMirror/protocol"
	"gitlab.com/linkinlog/queueMirror/store"
	"gitlab.com/linkinlog/queueMirror/telemetry"
)

// Renderer draws one table per bound key. Placeholder shows the empty
// board table when no key is bound.
type Renderer interface {
	Create(key string)
	Clear()
	Placeholder()
	Draw(key string, rows []string)
	Append(key string, rows []string)
	RemoveFirst(key string)
	RemoveLast(key string)
}

// StatusDisplay shows connection state and the operator's status log.
type StatusDisplay interface {
	SetConnected(connected bool)
	SetPeers(n int)
	Logf(format string, args ...any)
}

// Saver stores a downloaded snapshot and reports where it went.
type Saver interface {
	Save(payload string) (string, error)
}

type State int

const (
	StateEmpty State = iota
	StateLive
)

func (s State) String() string {
	if s == StateLive {
		return "Live"
	}
	return "Empty"
}

type Options struct {
	Saver     Saver
	Journal   logger.Logger
	Metrics   *telemetry.Metrics
	Telemetry bool
}

// Controller is the only writer of its store and of the key -> table
// bindings. Handle must be called from a single goroutine.
type Controller struct {
	store    *store.SequenceStore
	renderer Renderer
	status   StatusDisplay
	saver    Saver
	journal  logger.Logger
	metrics  *telemetry.Metrics
	slogger  *slog.Logger

	bound map[string]struct{}
	order []string
}

func NewController(r Renderer, status StatusDisplay, sl *slog.Logger, opts Options) *Controller {
	return &Controller{
		store:    store.New(opts.Telemetry),
		renderer: r,
		status:   status,
		saver:    opts.Saver,
		journal:  opts.Journal,
		metrics:  opts.Metrics,
		slogger:  sl,
		bound:    make(map[string]struct{}),
	}
}

func (c *Controller) State() State {
	if len(c.order) == 0 {
		return StateEmpty
	}
	return StateLive
}

// Bound lists bound keys in binding order.
func (c *Controller) Bound() []string {
	return append([]string{}, c.order...)
}

func (c *Controller) Snapshot() store.Snapshot {
	return c.store.Snapshot()
}

// Handle decodes and applies one inbound frame. Failures are logged and
// returned; none of them leave the controller unusable for the next frame.
func (c *Controller) Handle(ctx context.Context, raw []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling event: %v", r)
			c.slogger.Error("mirror.Handle", "error", err)
			c.status.Logf("error: %s", err)
		}
	}()

	msg, err := protocol.Decode(raw)
	if err != nil {
		c.metrics.DecodeFailed(ctx)
		c.slogger.Warn("dropping inbound message", "error", err)
		c.status.Logf("dropped message: %s", err)
		return err
	}

	return c.Apply(ctx, msg)
}

func (c *Controller) Apply(ctx context.Context, msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.ClientEvent:
		c.status.Logf("connected clients: %d", m.Peers)
		c.status.SetPeers(m.Peers)
		telemetry.SetPeers(m.Peers)

	case protocol.DataEvent:
		c.status.Logf("data event: %s, values: %s", m.Command, strings.Join(m.Values, ", "))
		if err := c.applyData(ctx, m); err != nil {
			return err
		}

	case protocol.CSVSync:
		c.status.Logf("sync event: %s", m.Kind())
		if err := c.resync(ctx, m.Data); err != nil {
			return err
		}

	case protocol.Download:
		c.status.Logf("download event")
		if err := c.save(m); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unhandled message %T", msg)
	}

	c.metrics.Applied(ctx, string(msg.Kind()))
	return nil
}

func (c *Controller) applyData(ctx context.Context, m protocol.DataEvent) error {
	switch m.Command {
	case protocol.AddTop:
		c.bind(m.Key)
		if err := c.store.PushFront(m.Key, m.Values); err != nil {
			return err
		}
		// a prepend moves every row, so the whole table is redrawn
		rows, err := c.store.Get(m.Key)
		if err != nil {
			return err
		}
		c.renderer.Draw(m.Key, rows)
		c.record(store.Event{EventType: store.EventPushFront, Key: m.Key, Values: m.Values})

	case protocol.AddBottom:
		c.bind(m.Key)
		if err := c.store.PushBack(m.Key, m.Values); err != nil {
			return err
		}
		c.renderer.Append(m.Key, m.Values)
		c.record(store.Event{EventType: store.EventPushBack, Key: m.Key, Values: m.Values})

	case protocol.RemoveTop:
		return c.pop(ctx, m, "PopFront", store.EventPopFront, c.store.PopFront, c.renderer.RemoveFirst)

	case protocol.RemoveBottom:
		return c.pop(ctx, m, "PopBack", store.EventPopBack, c.store.PopBack, c.renderer.RemoveLast)
	}

	return nil
}

func (c *Controller) pop(
	ctx context.Context,
	m protocol.DataEvent,
	op string,
	eventType store.EventType,
	popFn func(string) (string, error),
	removeRow func(string),
) error {
	if _, ok := c.bound[m.Key]; !ok {
		return c.outOfSync(ctx, &store.OutOfSyncError{Op: op, Key: m.Key, Reason: "no table bound"})
	}

	value, err := popFn(m.Key)
	if err != nil {
		return c.outOfSync(ctx, err)
	}
	removeRow(m.Key)
	c.record(store.Event{EventType: eventType, Key: m.Key, Values: []string{value}})

	// the server reports what it removed; a different local value means
	// the replicas diverged earlier
	if len(m.Values) > 0 && m.Values[0] != value {
		return c.outOfSync(ctx, &store.OutOfSyncError{
			Op:     op,
			Key:    m.Key,
			Reason: fmt.Sprintf("removed %q locally, server removed %q", value, m.Values[0]),
		})
	}
	return nil
}

// resync tears down every table, including ones a previous session left on
// screen, and rebuilds from the snapshot in its key order.
func (c *Controller) resync(ctx context.Context, snap store.Snapshot) error {
	c.renderer.Clear()
	c.bound = make(map[string]struct{})
	c.order = nil

	if err := c.store.ReplaceAll(snap); err != nil {
		return err
	}

	for _, key := range c.store.Keys() {
		rows, err := c.store.Get(key)
		if err != nil {
			return err
		}
		c.bind(key)
		c.renderer.Append(key, rows)
	}

	if c.State() == StateEmpty {
		c.renderer.Placeholder()
	}

	c.record(store.Event{EventType: store.EventReplaceAll, Snapshot: snap})
	c.metrics.Resynced(ctx)
	return nil
}

func (c *Controller) save(m protocol.Download) error {
	if c.saver == nil {
		c.slogger.Warn("download event without a saver")
		return nil
	}

	path, err := c.saver.Save(m.Value)
	if err != nil {
		c.slogger.Error("saving snapshot", "error", err)
		c.status.Logf("save failed: %s", err)
		return err
	}

	c.slogger.Info("snapshot saved", "path", path)
	c.status.Logf("saved %s", path)
	return nil
}

func (c *Controller) bind(key string) {
	if _, ok := c.bound[key]; ok {
		return
	}
	c.bound[key] = struct{}{}
	c.order = append(c.order, key)
	c.renderer.Create(key)
}

func (c *Controller) outOfSync(ctx context.Context, err error) error {
	c.metrics.OutOfSync(ctx, opOf(err))
	c.slogger.Error("mirror out of sync", "error", err)
	c.status.Logf("out of sync: %s", err)
	return err
}

func (c *Controller) record(e store.Event) {
	if c.journal == nil {
		return
	}
	if err := c.journal.LogEvent(e); err != nil {
		c.slogger.Error("journal", "error", err)
	}
}

func opOf(err error) string {
	var oos *store.OutOfSyncError
	if errors.As(err, &oos) {
		return oos.Op
	}
	return "unknown"
}
