package logger

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	"gitlab.com/linkinlog/queueMirror/store"
)

const Table = "journal"

func NewPostgresTransactionLogger(config PostgresDBParams) (*PostgresTransactionLogger, error) {
	connStr := fmt.Sprintf("host=%s dbname=%s user=%s password=%s sslmode=disable",
		config.host, config.dbName, config.user, config.password)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	logger := &PostgresTransactionLogger{db: db}

	exists, err := logger.verifyTableExists(Table)
	if err != nil {
		return nil, fmt.Errorf("failed to verify table: %w", err)
	}
	if !exists {
		if err := logger.createJournalTable(); err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}

	return logger, nil
}

type PostgresDBParams struct {
	dbName, host, user, password string
}

type PostgresTransactionLogger struct {
	mu     sync.Mutex
	events chan<- store.Event
	errors chan error
	db     *sql.DB
	wg     sync.WaitGroup
}

func (l *PostgresTransactionLogger) Close() error {
	l.mu.Lock()
	events := l.events
	l.events = nil
	l.mu.Unlock()

	if events != nil {
		close(events)
		l.wg.Wait()
	}

	return l.db.Close()
}

func (l *PostgresTransactionLogger) LogEvent(e store.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.events == nil {
		return ErrNotRunning
	}
	l.events <- e

	return nil
}

func (l *PostgresTransactionLogger) Err() <-chan error {
	return l.errors
}

func (l *PostgresTransactionLogger) ReadEvents() (<-chan store.Event, <-chan error) {
	outEvent := make(chan store.Event)
	outError := make(chan error, 1)

	go func() {
		defer close(outEvent)
		defer close(outError)

		query := `select sequence, event_type, key, payload from journal order by sequence`

		rows, err := l.db.Query(query)
		if err != nil {
			outError <- fmt.Errorf("sql query error: %w", err)
			return
		}

		defer rows.Close()

		for rows.Next() {
			var (
				e       store.Event
				payload string
			)
			err = rows.Scan(
				&e.Sequence,
				&e.EventType,
				&e.Key,
				&payload,
			)
			if err != nil {
				outError <- fmt.Errorf("error reading row: %w", err)
				return
			}
			if err := e.SetPayload([]byte(payload)); err != nil {
				outError <- fmt.Errorf("error reading row %d: %w", e.Sequence, err)
				return
			}

			outEvent <- e
		}

		if err := rows.Err(); err != nil {
			outError <- fmt.Errorf("error reading rows: %w", err)
			return
		}
	}()

	return outEvent, outError
}

func (l *PostgresTransactionLogger) Run() {
	events := make(chan store.Event, 16)
	errs := make(chan error, 1)

	l.mu.Lock()
	l.events = events
	l.errors = errs
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		query := `insert into journal (event_type, key, payload) values ($1, $2, $3)`

		for e := range events {
			payload, err := e.Payload()
			if err == nil {
				_, err = l.db.Exec(
					query,
					e.EventType,
					e.Key,
					string(payload),
				)
			}
			if err != nil {
				select {
				case errs <- err:
				default:
				}
			}
		}
	}()
}

func (l *PostgresTransactionLogger) verifyTableExists(table string) (bool, error) {
	var exists bool

	row := l.db.QueryRow(`SELECT EXISTS (
							   SELECT FROM information_schema.tables
							   WHERE  table_schema = 'public'
							   AND    table_name   = $1
							   );`,
		table)

	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (l *PostgresTransactionLogger) createJournalTable() error {
	tx, err := l.db.Begin()
	if err != nil {
		return err
	}

	createTableQuery := `
create table if not exists journal (
  sequence serial primary key,
  event_type int,
  key text,
  payload text
)
`
	if _, err = tx.Exec(createTableQuery); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
