package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/jsonc"

	"gitlab.com/linkinlog/queueMirror/env"
	"gitlab.com/linkinlog/queueMirror/frontend"
	"gitlab.com/linkinlog/queueMirror/logger"
)

// ConfigFile may carry // and /* */ comments and trailing commas.
type ConfigFile struct {
	Logger   string `json:"logger"`
	Frontend string `json:"frontend"`
	Server   string `json:"server"`
}

func defaultConfig() ConfigFile {
	return ConfigFile{
		Logger:   "File",
		Frontend: "REST",
		Server:   env.ServerURL(),
	}
}

func watchFile(configPath string, s *Service, sl *slog.Logger) (<-chan error, context.CancelFunc) {
	errs := make(chan error, 1)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		errs <- err
		return errs, func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer watcher.Close()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				conf, err := GetConfig(configPath)
				if err != nil {
					// editors write in several steps; wait for a parseable file
					sl.Warn("config change ignored", "error", err)
					continue
				}

				lt := logger.ToLoggerType(conf.Logger)
				l, err := logger.New(lt)
				if err != nil {
					errs <- err
					return
				}

				ft := frontend.ToFrontendType(conf.Frontend)
				f := frontend.New(sl, ft)
				if f == nil {
					l.Close()
					sl.Warn("config change ignored", "frontend", conf.Frontend)
					continue
				}

				sl.Info("config change detected, reloading", "logger", lt.String(), "frontend", ft.String(), "server", conf.Server)
				s.Switch(l, f, conf.Server)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				errs <- err
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	err = watcher.Add(configPath)
	if err != nil {
		errs <- err
		return errs, cancel
	}

	sl.Info("config watcher", "watching", configPath)

	return errs, cancel
}

func GetConfig(configPath string) (*ConfigFile, error) {
	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	conf := defaultConfig()
	if err := json.Unmarshal(jsonc.ToJSON(file), &conf); err != nil {
		return nil, err
	}

	return &conf, nil
}

func GetOrMakeConfig(configPath string) (*ConfigFile, error) {
	existingConf, err := GetConfig(configPath)
	if existingConf != nil && err == nil {
		return existingConf, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	conf := defaultConfig()
	contents, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(configPath, contents, 0o644); err != nil {
		return nil, err
	}

	return &conf, nil
}
