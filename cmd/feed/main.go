// Command feed connects to the producer endpoint and pushes values onto a
// handful of queues, alternating addTop and addBottom per key.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"gitlab.com/linkinlog/queueMirror/env"
	"gitlab.com/linkinlog/queueMirror/protocol"
)

type feedSettings struct {
	URL      string
	Keys     int
	Rounds   int
	Interval time.Duration
	Long     bool
	Pop      bool
}

func main() {
	var settings feedSettings

	flagSet := pflag.NewFlagSet("feed", pflag.ContinueOnError)
	flagSet.StringVar(&settings.URL, "url", env.FeedURL(), "producer endpoint")
	flagSet.IntVar(&settings.Keys, "keys", 6, "number of queues to push onto (key1..keyN)")
	flagSet.IntVar(&settings.Rounds, "rounds", 1, "how many values to push per queue")
	flagSet.DurationVar(&settings.Interval, "interval", 0, "pause between rounds")
	flagSet.BoolVar(&settings.Long, "long", true, "make the first queue's values wider than a table cell")
	flagSet.BoolVar(&settings.Pop, "pop", false, "pop one value from every queue after pushing")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if err := settings.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(context.Background(), settings, slogger); err != nil {
		slogger.Error("feed", "error", err)
		os.Exit(1)
	}
}

func (s feedSettings) validate() error {
	switch {
	case s.Keys < 1:
		return fmt.Errorf("--keys must be at least 1, got %d", s.Keys)
	case s.Rounds < 0:
		return fmt.Errorf("--rounds must not be negative, got %d", s.Rounds)
	case s.Interval < 0:
		return fmt.Errorf("--interval must not be negative, got %s", s.Interval)
	}
	return nil
}

func run(ctx context.Context, settings feedSettings, sl *slog.Logger) error {
	if err := settings.validate(); err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, settings.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", settings.URL, err)
	}
	defer conn.Close()

	sl.Info("connected", "url", settings.URL)

	var sent int
	for round := 0; round < settings.Rounds; round++ {
		for _, msg := range pushes(settings, time.Now()) {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			sent++
		}

		if settings.Interval > 0 && round < settings.Rounds-1 {
			time.Sleep(settings.Interval)
		}
	}

	if settings.Pop {
		for _, msg := range pops(settings) {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			sent++
		}
	}

	sl.Info("done", "sent", sent)

	return conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
}

// pushes builds one push per key; even keys go on top, odd ones at the
// bottom.
func pushes(settings feedSettings, now time.Time) [][]byte {
	stamp := strconv.FormatInt(now.UnixMilli(), 10)

	out := make([][]byte, 0, settings.Keys)
	for i := 0; i < settings.Keys; i++ {
		value := stamp
		if i == 0 && settings.Long {
			value += strings.Repeat("somereallylongvalue", 6)
		}

		cmd := protocol.AddTop
		if i%2 == 1 {
			cmd = protocol.AddBottom
		}
		out = append(out, protocol.EncodeFeed(cmd, keyName(i), value))
	}
	return out
}

func pops(settings feedSettings) [][]byte {
	out := make([][]byte, 0, settings.Keys)
	for i := 0; i < settings.Keys; i++ {
		cmd := protocol.RemoveTop
		if i%2 == 1 {
			cmd = protocol.RemoveBottom
		}
		out = append(out, protocol.EncodeFeed(cmd, keyName(i)))
	}
	return out
}

func keyName(i int) string {
	return "key" + strconv.Itoa(i+1)
}
