// Package logger keeps a transaction journal of every mutation the mirror
// applied, so a session can be replayed offline when it looks out of sync.
package logger

import (
	"errors"
	"fmt"
	"path/filepath"

	"gitlab.com/linkinlog/queueMirror/env"
	"gitlab.com/linkinlog/queueMirror/store"
)

var ErrNotRunning = errors.New("transaction logger is not running")

type Logger interface {
	LogEvent(e store.Event) error

	Close() error

	Err() <-chan error

	ReadEvents() (<-chan store.Event, <-chan error)

	Run()
}

const JournalFile = "journal"

func New(l LoggerType) (Logger, error) {
	switch l {
	case File:
		return NewFileTransactionLogger(filepath.Join(env.ConfigPath(), JournalFile))
	case PSQL:
		params := PostgresDBParams{
			dbName:   env.DBName(),
			host:     env.DBHost(),
			user:     env.DBUser(),
			password: env.DBPass(),
		}

		return NewPostgresTransactionLogger(params)
	}
	return nil, fmt.Errorf("invalid loggerType %v", l)
}

func ToLoggerType(s string) LoggerType {
	switch s {
	case "File":
		return File
	case "PSQL":
		return PSQL
	}
	return 0
}

type LoggerType int

const (
	_ LoggerType = iota
	File
	PSQL
)

func (l LoggerType) String() string {
	switch l {
	case File:
		return "File"
	case PSQL:
		return "PSQL"
	}
	return fmt.Sprintf("LoggerType(%d)", int(l))
}
