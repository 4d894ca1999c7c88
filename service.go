package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gitlab.com/linkinlog/queueMirror/frontend"
	"gitlab.com/linkinlog/queueMirror/logger"
	"gitlab.com/linkinlog/queueMirror/mirror"
	"gitlab.com/linkinlog/queueMirror/store"
	"gitlab.com/linkinlog/queueMirror/telemetry"
	"gitlab.com/linkinlog/queueMirror/view"
)

type ServiceOptions struct {
	ServerURL string
	// LoadPath is a saved snapshot uploaded once the session is up.
	LoadPath  string
	Saver     mirror.Saver
	Metrics   *telemetry.Metrics
	Telemetry bool
}

func NewService(f frontend.Frontend, l logger.Logger, sl *slog.Logger, opts ServiceOptions) *Service {
	return &Service{
		board:    view.NewBoard(),
		frontend: f,
		logger:   l,
		slogger:  sl,
		opts:     opts,
		done:     make(chan struct{}),
	}
}

// Service owns the board for the life of the process. Each Start opens
// one session with a fresh controller; the board keeps showing the last
// state after the session ends.
type Service struct {
	board    *view.Board
	frontend frontend.Frontend
	logger   logger.Logger
	slogger  *slog.Logger
	opts     ServiceOptions

	lock     sync.Mutex
	session  *mirror.Session
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
}

func (s *Service) Start() {
	ctx, cancel := context.WithCancel(context.Background())

	s.lock.Lock()
	s.cancel = cancel
	f, l := s.frontend, s.logger
	s.lock.Unlock()

	l.Run()

	frontendErrors := f.Start(s)
	sessionDone := s.connect(ctx, l)

	for {
		select {
		case err := <-frontendErrors:
			if frontend.IsQuit(err) {
				s.slogger.Info("frontend closed, shutting down")
				s.Stop()
				s.doneOnce.Do(func() { close(s.done) })
				return
			}
			if err != nil {
				s.slogger.Error("s.frontend", "error", err)
			}
		case err := <-l.Err():
			if err != nil {
				s.slogger.Error("s.logger", "error", err)
			}
		case err := <-sessionDone:
			sessionDone = nil
			if err != nil {
				s.slogger.Error("s.session", "error", err)
				s.board.Logf("session ended: %s", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// connect dials the server and runs the session until it ends. There is
// no reconnect; the board keeps the last state it showed.
func (s *Service) connect(ctx context.Context, l logger.Logger) <-chan error {
	done := make(chan error, 1)

	go func() {
		controller := mirror.NewController(s.board, s.board, s.slogger, mirror.Options{
			Saver:     s.opts.Saver,
			Journal:   l,
			Metrics:   s.opts.Metrics,
			Telemetry: s.opts.Telemetry,
		})

		session, err := mirror.Dial(ctx, s.opts.ServerURL, controller, s.slogger, nil)
		if err != nil {
			s.board.Logf("connect failed: %s", err)
			done <- err
			return
		}

		s.lock.Lock()
		s.session = session
		s.lock.Unlock()

		s.slogger.Info("connected", "server", s.opts.ServerURL, "session", session.ID.String())

		if s.opts.LoadPath != "" {
			s.load(session, s.opts.LoadPath)
		}

		err = session.Run(ctx)

		s.lock.Lock()
		s.session = nil
		s.lock.Unlock()

		done <- err
	}()

	return done
}

func (s *Service) load(session *mirror.Session, path string) {
	payload, err := mirror.LoadFile(path)
	if err != nil {
		s.slogger.Error("load", "path", path, "error", err)
		s.board.Logf("load failed: %s", err)
		return
	}

	if err := session.Upload(payload); err != nil {
		s.slogger.Error("upload", "path", path, "error", err)
		s.board.Logf("upload failed: %s", err)
		return
	}
	s.board.Logf("uploaded %s", path)
}

func (s *Service) Stop() {
	s.lock.Lock()
	cancel := s.cancel
	s.cancel = nil
	session := s.session
	f, l := s.frontend, s.logger
	s.lock.Unlock()

	if cancel != nil {
		cancel()
	}
	if session != nil {
		if err := session.Close(); err != nil {
			s.slogger.Error("s.session.Close()", "error", err.Error())
		}
	}
	if err := f.Close(context.Background()); err != nil {
		s.slogger.Error("s.frontend.Close()", "error", err.Error())
	}
	if err := l.Close(); err != nil {
		s.slogger.Error("s.logger.Close()", "error", err.Error())
	}
}

// Switch restarts the service with a new journal, frontend and server.
// Nil or empty arguments keep the current value.
func (s *Service) Switch(l logger.Logger, f frontend.Frontend, serverURL string) {
	s.Stop()

	s.lock.Lock()
	if l != nil {
		s.logger = l
	}
	if f != nil {
		s.frontend = f
	}
	if serverURL != "" {
		s.opts.ServerURL = serverURL
	}
	s.lock.Unlock()

	go s.Start()
}

// Done is closed once the user quits the frontend.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) Board() *view.Board {
	return s.board
}

func (s *Service) Upload(payload string) error {
	session := s.currentSession()
	if session == nil {
		return frontend.ErrNotConnected
	}
	return session.Upload(payload)
}

func (s *Service) Download() error {
	session := s.currentSession()
	if session == nil {
		return frontend.ErrNotConnected
	}
	return session.Download()
}

func (s *Service) currentSession() *mirror.Session {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.session
}

// replay rebuilds a store from a file journal and writes the resulting
// snapshot as JSON.
func replay(path string, w io.Writer) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	l, err := logger.NewFileTransactionLogger(path)
	if err != nil {
		return err
	}
	defer l.Close()

	kv := store.New(false)
	events, errs := l.ReadEvents()

	var count int
	for e := range events {
		if err := e.Apply(kv); err != nil {
			return fmt.Errorf("replaying event %d (%s %q): %w", e.Sequence, e.EventType, e.Key, err)
		}
		count++
	}
	if err := <-errs; err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(kv.Snapshot()); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "replayed %d events\n", count)
	return nil
}
