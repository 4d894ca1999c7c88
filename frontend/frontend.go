package frontend

import (
	"context"
	"errors"
	"log/slog"

	"gitlab.com/linkinlog/queueMirror/view"
)

// Backend is what a frontend can see and ask for. Reads go through the
// board; the two user actions are forwarded to the current session.
type Backend interface {
	Board() *view.Board
	Upload(payload string) error
	Download() error
}

type Frontend interface {
	Start(Backend) <-chan error
	Close(ctx context.Context) error
}

// ErrQuit is sent by a frontend whose user asked to exit.
var ErrQuit = errors.New("frontend closed by user")

func New(sl *slog.Logger, f FrontendType) Frontend {
	switch f {
	case TUI:
		return NewTUI(sl)
	case REST:
		return NewRESTServer(sl)
	}

	return nil
}

func ToFrontendType(s string) FrontendType {
	switch s {
	case "TUI":
		return TUI
	case "REST":
		return REST
	}
	return 0
}

type FrontendType int

const (
	_ FrontendType = iota
	TUI
	REST
)

func (f FrontendType) String() string {
	switch f {
	case TUI:
		return "TUI"
	case REST:
		return "REST"
	}
	return "unknown"
}

// IsQuit reports whether err means the user closed the frontend.
func IsQuit(err error) bool {
	return errors.Is(err, ErrQuit)
}
