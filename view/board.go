// Package view holds what is currently rendered: one table per bound key,
// the placeholder shown while nothing is bound, the connection status and
// the status log. Frontends only read from it.
package view

import (
	"fmt"
	"sync"
	"time"
)

const maxLogLines = 500

type Table struct {
	Key  string
	Rows []string
}

type Status struct {
	Connected   bool
	Peers       int
	Placeholder bool
	CanSave     bool
}

type Board struct {
	lock        sync.RWMutex
	order       []string
	tables      map[string][]string
	placeholder bool
	connected   bool
	peers       int
	log         []string
	now         func() time.Time

	subs []chan struct{}
}

func NewBoard() *Board {
	return &Board{
		tables:      make(map[string][]string),
		placeholder: true,
		now:         time.Now,
	}
}

// Create adds an empty table for key, replacing any table already there,
// and hides the placeholder.
func (b *Board) Create(key string) {
	b.mutate(func() {
		if _, ok := b.tables[key]; !ok {
			b.order = append(b.order, key)
		}
		b.tables[key] = []string{}
		b.placeholder = false
	})
}

// Clear destroys every table, including ones no controller knows about.
func (b *Board) Clear() {
	b.mutate(func() {
		b.order = nil
		b.tables = make(map[string][]string)
	})
}

func (b *Board) Placeholder() {
	b.mutate(func() {
		b.placeholder = len(b.order) == 0
	})
}

// Draw replaces every row of key's table.
func (b *Board) Draw(key string, rows []string) {
	b.mutate(func() {
		if _, ok := b.tables[key]; !ok {
			return
		}
		b.tables[key] = append([]string{}, rows...)
	})
}

func (b *Board) Append(key string, rows []string) {
	b.mutate(func() {
		current, ok := b.tables[key]
		if !ok {
			return
		}
		b.tables[key] = append(current, rows...)
	})
}

func (b *Board) RemoveFirst(key string) {
	b.mutate(func() {
		if rows := b.tables[key]; len(rows) > 0 {
			b.tables[key] = rows[1:]
		}
	})
}

func (b *Board) RemoveLast(key string) {
	b.mutate(func() {
		if rows := b.tables[key]; len(rows) > 0 {
			b.tables[key] = rows[:len(rows)-1 : len(rows)-1]
		}
	})
}

func (b *Board) SetConnected(connected bool) {
	b.mutate(func() {
		b.connected = connected
	})
}

func (b *Board) SetPeers(n int) {
	b.mutate(func() {
		b.peers = n
	})
}

// Logf appends a line to the status log.
func (b *Board) Logf(format string, args ...any) {
	line := fmt.Sprintf("%s %s", b.now().Format(time.TimeOnly), fmt.Sprintf(format, args...))
	b.mutate(func() {
		b.log = append(b.log, line)
		if over := len(b.log) - maxLogLines; over > 0 {
			b.log = append([]string{}, b.log[over:]...)
		}
	})
}

// Tables returns a copy of every table in creation order.
func (b *Board) Tables() []Table {
	b.lock.RLock()
	defer b.lock.RUnlock()

	out := make([]Table, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, Table{Key: key, Rows: append([]string{}, b.tables[key]...)})
	}
	return out
}

func (b *Board) Table(key string) (Table, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	rows, ok := b.tables[key]
	if !ok {
		return Table{}, false
	}
	return Table{Key: key, Rows: append([]string{}, rows...)}, true
}

func (b *Board) Status() Status {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return Status{
		Connected:   b.connected,
		Peers:       b.peers,
		Placeholder: b.placeholder,
		CanSave:     len(b.order) > 0,
	}
}

func (b *Board) Log() []string {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return append([]string{}, b.log...)
}

// Subscribe returns a channel that receives a signal after changes. Signals
// coalesce: a slow reader sees one pending signal, not one per change.
func (b *Board) Subscribe() <-chan struct{} {
	b.lock.Lock()
	defer b.lock.Unlock()

	ch := make(chan struct{}, 1)
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Board) mutate(fn func()) {
	b.lock.Lock()
	fn()
	subs := b.subs
	b.lock.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
