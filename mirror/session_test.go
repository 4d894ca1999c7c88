package mirror

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/linkinlog/queueMirror/protocol"
	"gitlab.com/linkinlog/queueMirror/view"
)

// adminServer plays the server side of the admin endpoint: it writes the
// given frames, then hands the connection to script.
func adminServer(t *testing.T, frames []string, script func(*websocket.Conn)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				t.Errorf("write: %v", err)
				return
			}
		}
		if script != nil {
			script(conn)
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func runSession(t *testing.T, s *Session) <-chan error {
	t.Helper()

	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background())
	}()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func TestSession_AppliesFramesInOrder(t *testing.T) {
	srv := adminServer(t, []string{
		`{"Type":"csvSync","Data":{"k1":["x"],"k3":["old"]}}`,
		`{"Type":"kvpSync","Data":{}}`,
		`{"Type":"clientEvent","Values":["2"]}`,
		`{"Type":"dataEvent","Command":"addBottom","Key":"k1","Values":["1"]}`,
		`{"Type":"dataEvent","Command":"addTop","Key":"k1","Values":["2"]}`,
		`{"Type":"dataEvent","Command":"addBottom","Key":"k1","Values":["3"]}`,
		`{"Type":"dataEvent","Command":"removeTop","Key":"k1","Values":["2"]}`,
		`{"Type":"dataEvent","Command":"removeBottom","Key":"nope","Values":["?"]}`,
	}, nil)

	board := view.NewBoard()
	c := NewController(board, board, quietLogger(), Options{})

	s, err := Dial(context.Background(), wsURL(srv), c, quietLogger(), nil)
	require.NoError(t, err)
	assert.NotZero(t, s.ID)

	require.NoError(t, waitDone(t, runSession(t, s)))

	assert.Equal(t, []string{"k1", "k3"}, c.Bound())
	tbl, ok := board.Table("k1")
	require.True(t, ok)
	assert.Equal(t, []string{"x", "1", "3"}, tbl.Rows)
	assert.Equal(t, 2, board.Status().Peers)
	assert.False(t, board.Status().Connected, "disconnected after the server closed")
}

func TestSession_DownloadAndSave(t *testing.T) {
	requests := make(chan protocol.Request, 2)
	snapshot := `{"k1":["x","y"],"k2":["z"]}`

	srv := adminServer(t, []string{`{"Type":"csvSync","Data":{}}`}, func(conn *websocket.Conn) {
		for i := 0; i < 2; i++ {
			var req protocol.Request
			if err := conn.ReadJSON(&req); err != nil {
				t.Errorf("read: %v", err)
				return
			}
			requests <- req
		}

		reply, _ := json.Marshal(map[string]string{"Type": "download", "Value": snapshot})
		_ = conn.WriteMessage(websocket.TextMessage, reply)
	})

	board := view.NewBoard()
	saver := NewFileSaver(t.TempDir())
	c := NewController(board, board, quietLogger(), Options{Saver: saver})

	s, err := Dial(context.Background(), wsURL(srv), c, quietLogger(), nil)
	require.NoError(t, err)
	done := runSession(t, s)

	require.NoError(t, s.Upload(snapshot))
	require.NoError(t, s.Download())
	require.NoError(t, waitDone(t, done))

	upload := <-requests
	assert.Equal(t, "upload", upload.Command)
	assert.Equal(t, snapshot, upload.Value)
	assert.Equal(t, "download", (<-requests).Command)

	entries, err := os.ReadDir(saver.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(saver.Dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.JSONEq(t, snapshot, string(data))
}

func TestSession_SendAfterCloseFails(t *testing.T) {
	srv := adminServer(t, nil, func(conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
	})

	board := view.NewBoard()
	c := NewController(board, board, quietLogger(), Options{})
	s, err := Dial(context.Background(), wsURL(srv), c, quietLogger(), nil)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Download(), ErrSessionClosed)
	assert.NoError(t, s.Close(), "second close is a no-op")
}

func TestSession_RunStopsOnContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := adminServer(t, nil, func(conn *websocket.Conn) {
		<-release
	})
	defer close(release)

	board := view.NewBoard()
	c := NewController(board, board, quietLogger(), Options{})
	s, err := Dial(context.Background(), wsURL(srv), c, quietLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	assert.ErrorIs(t, waitDone(t, done), context.Canceled)
}

func TestDial_Failure(t *testing.T) {
	board := view.NewBoard()
	c := NewController(board, board, quietLogger(), Options{})

	_, err := Dial(context.Background(), "ws://127.0.0.1:1/admin", c, quietLogger(), nil)
	assert.Error(t, err)
}
