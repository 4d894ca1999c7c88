package logger

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gitlab.com/linkinlog/queueMirror/store"
)

// maxLineSize bounds one journal line; resync records carry whole snapshots.
const maxLineSize = 16 << 20

func NewFileTransactionLogger(filename string) (*FileTransactionLogger, error) {
	file, err := os.OpenFile(filename, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	return &FileTransactionLogger{file: file}, nil
}

// FileTransactionLogger writes one tab separated line per event:
// sequence, event type, quoted key, JSON payload.
type FileTransactionLogger struct {
	mu     sync.Mutex
	events chan<- store.Event
	errors chan error
	last   store.Sequence
	file   *os.File
	wg     sync.WaitGroup
}

// Close flushes queued events before closing the file.
func (ftl *FileTransactionLogger) Close() error {
	ftl.mu.Lock()
	events := ftl.events
	ftl.events = nil
	ftl.mu.Unlock()

	if events != nil {
		close(events)
		ftl.wg.Wait()
	}

	return ftl.file.Close()
}

func (ftl *FileTransactionLogger) LogEvent(e store.Event) error {
	ftl.mu.Lock()
	defer ftl.mu.Unlock()

	if ftl.events == nil {
		return ErrNotRunning
	}
	ftl.events <- e

	return nil
}

func (ftl *FileTransactionLogger) Err() <-chan error {
	return ftl.errors
}

// Run starts the writer. Sequence numbers continue from the last line
// already in the file, so one journal can span several runs.
func (ftl *FileTransactionLogger) Run() {
	events := make(chan store.Event, 16)
	errors := make(chan error, 1)

	last, err := lastSequence(ftl.file.Name())
	if err != nil {
		errors <- fmt.Errorf("journal tail: %w", err)
	}

	ftl.mu.Lock()
	ftl.events = events
	ftl.errors = errors
	if last > ftl.last {
		ftl.last = last
	}
	ftl.mu.Unlock()

	ftl.wg.Add(1)
	go func() {
		defer ftl.wg.Done()

		for e := range events {
			ftl.last++

			payload, err := e.Payload()
			if err == nil {
				_, err = fmt.Fprintf(
					ftl.file,
					"%d\t%d\t%s\t%s\n",
					ftl.last, e.EventType, strconv.Quote(e.Key), payload,
				)
			}

			// keep draining so LogEvent never blocks on a dead writer
			if err != nil {
				select {
				case errors <- err:
				default:
				}
			}
		}
	}()
}

func (ftl *FileTransactionLogger) ReadEvents() (<-chan store.Event, <-chan error) {
	scanner := bufio.NewScanner(ftl.file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	outEvent := make(chan store.Event)
	outError := make(chan error, 1)

	go func() {
		defer close(outEvent)
		defer close(outError)

		for scanner.Scan() {
			e, err := parseLine(scanner.Text())
			if err != nil {
				outError <- fmt.Errorf("input parse error: %w", err)
				return
			}

			if ftl.last >= e.Sequence {
				outError <- fmt.Errorf("sequence number error: %d >= %d", ftl.last, e.Sequence)
				return
			}

			ftl.last = e.Sequence

			outEvent <- e
		}

		if err := scanner.Err(); err != nil {
			outError <- fmt.Errorf("transaction log read failure: %w", err)
			return
		}
	}()

	return outEvent, outError
}

// lastSequence returns the highest sequence number in the journal at path.
func lastSequence(path string) (store.Sequence, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var last store.Sequence
	for scanner.Scan() {
		field, _, _ := strings.Cut(scanner.Text(), "\t")
		seq, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return last, fmt.Errorf("sequence: %w", err)
		}
		if s := store.Sequence(seq); s > last {
			last = s
		}
	}
	return last, scanner.Err()
}

func parseLine(line string) (store.Event, error) {
	var e store.Event

	fields := strings.SplitN(line, "\t", 4)
	if len(fields) != 4 {
		return e, fmt.Errorf("want 4 fields, got %d", len(fields))
	}

	seq, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return e, fmt.Errorf("sequence: %w", err)
	}
	eventType, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil {
		return e, fmt.Errorf("event type: %w", err)
	}
	key, err := strconv.Unquote(fields[2])
	if err != nil {
		return e, fmt.Errorf("key: %w", err)
	}

	e.Sequence = store.Sequence(seq)
	e.EventType = store.EventType(eventType)
	e.Key = key

	if err := e.SetPayload([]byte(fields[3])); err != nil {
		return e, err
	}
	return e, nil
}
