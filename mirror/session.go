package mirror

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"gitlab.com/linkinlog/queueMirror/protocol"
	"gitlab.com/linkinlog/queueMirror/telemetry"
)

var ErrSessionClosed = errors.New("session closed")

type SessionSettings struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

func DefaultSessionSettings() *SessionSettings {
	return &SessionSettings{
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// Session is one connection to the server's admin endpoint. Inbound frames
// are handed to its controller one at a time, in arrival order.
type Session struct {
	ID ulid.ULID

	conn       *websocket.Conn
	controller *Controller
	slogger    *slog.Logger
	settings   *SessionSettings

	writeLock sync.Mutex
	closeOnce sync.Once
	closed    bool
}

func Dial(
	ctx context.Context,
	url string,
	controller *Controller,
	sl *slog.Logger,
	settings *SessionSettings,
) (*Session, error) {
	if settings == nil {
		settings = DefaultSessionSettings()
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: settings.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)

	return &Session{
		ID:         id,
		conn:       conn,
		controller: controller,
		slogger:    sl.With("session", id.String()),
		settings:   settings,
	}, nil
}

// Run reads until the connection drops or ctx is done. The last applied
// state stays on the renderer after it returns.
func (s *Session) Run(ctx context.Context) error {
	handleCtx, handleCancel := context.WithCancel(ctx)
	defer handleCancel()

	go func() {
		<-handleCtx.Done()
		s.Close()
	}()

	s.controller.status.SetConnected(true)
	telemetry.SetConnected(true)
	s.slogger.Info("session connected")
	defer func() {
		s.controller.status.SetConnected(false)
		s.controller.status.Logf("disconnected")
		telemetry.SetConnected(false)
	}()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.slogger.Info("session read ended", "error", err)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("session %s: %w", s.ID, err)
		}

		// already logged by the controller; the loop carries on
		_ = s.controller.Handle(handleCtx, message)
	}
}

// Upload asks the server to install payload, a serialized snapshot.
func (s *Session) Upload(payload string) error {
	return s.send(protocol.EncodeUpload(payload))
}

// Download asks the server for its snapshot; it arrives later as a
// download event.
func (s *Session) Download() error {
	return s.send(protocol.EncodeDownload())
}

func (s *Session) send(message []byte) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, message)
}

func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeLock.Lock()
		s.closed = true
		s.conn.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
		_ = s.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		s.writeLock.Unlock()

		err = s.conn.Close()
	})
	return err
}
