package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"

	"gitlab.com/linkinlog/queueMirror/env"
	"gitlab.com/linkinlog/queueMirror/featureflags"
	"gitlab.com/linkinlog/queueMirror/frontend"
	"gitlab.com/linkinlog/queueMirror/logger"
	"gitlab.com/linkinlog/queueMirror/mirror"
	"gitlab.com/linkinlog/queueMirror/telemetry"
)

const (
	configFileName string = "queueMirror.json"
	configFileRoot string = "queueMirror"
	logFileName    string = "queueMirror.log"
)

// defaultConfigPath creates <CONFIG_PATH>/queueMirror when missing and
// returns the config file inside it.
func defaultConfigPath() (string, error) {
	configRootPath := filepath.Join(env.ConfigPath(), configFileRoot)

	if _, err := os.Stat(configRootPath); err != nil {
		if err := os.MkdirAll(configRootPath, 0o755); err != nil {
			return "", err
		}
	}

	return filepath.Join(configRootPath, configFileName), nil
}

func main() {
	var configPath string

	flagSet := pflag.NewFlagSet("queueMirror", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the JSON config file (default <CONFIG_PATH>/queueMirror/queueMirror.json)")
	replayPath := flagSet.String("replay", "", "rebuild the queues from a file journal, print them as JSON and exit")
	loadPath := flagSet.String("load", "", "saved snapshot to upload once connected")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if *replayPath != "" {
		if err := replay(*replayPath, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if configPath == "" {
		path, err := defaultConfigPath()
		if err != nil {
			panic(err)
		}
		configPath = path
	}

	conf, err := GetOrMakeConfig(configPath)
	if err != nil {
		panic(err)
	}

	frontendType := frontend.ToFrontendType(conf.Frontend)

	// the TUI owns the terminal, so logs go to a file next to the config
	var out io.Writer = os.Stdout
	if frontendType == frontend.TUI {
		logFile, err := os.OpenFile(filepath.Join(filepath.Dir(configPath), logFileName), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
		if err != nil {
			panic(err)
		}
		defer logFile.Close()
		out = logFile
	}

	opts := slog.HandlerOptions{AddSource: true, Level: slog.LevelInfo}
	slogger := slog.New(slog.NewJSONHandler(out, &opts))

	tracing := featureflags.Enabled(featureflags.Tracing, nil)
	shutdown, err := telemetry.Setup(context.Background(), tracing)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slogger.Error("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := telemetry.NewMetrics(otel.Meter(env.ServiceName()))
	if err != nil {
		panic(err)
	}

	loggerType := logger.ToLoggerType(conf.Logger)
	journal, err := logger.New(loggerType)
	if err != nil {
		panic(err)
	}

	fe := frontend.New(slogger, frontendType)
	if fe == nil {
		panic(fmt.Sprintf("invalid frontend %q", conf.Frontend))
	}

	slogger.Info("listening",
		"s.frontend", frontendType.String(),
		"s.logger", loggerType.String(),
		"server", conf.Server,
	)
	s := NewService(fe, journal, slogger, ServiceOptions{
		ServerURL: conf.Server,
		LoadPath:  *loadPath,
		Saver:     mirror.NewFileSaver(env.SnapshotDir()),
		Metrics:   metrics,
		Telemetry: tracing,
	})
	go s.Start()

	errChan, cancel := watchFile(configPath, s, slogger)
	defer cancel()

	select {
	case err := <-errChan:
		if err != nil {
			s.Stop()
			panic(err)
		}
	case <-s.Done():
	}
}
