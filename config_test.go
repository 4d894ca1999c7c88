package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrMakeConfig_WritesDefaults(t *testing.T) {
	t.Setenv("SERVER_URL", "ws://example:81/admin")
	path := filepath.Join(t.TempDir(), "queueMirror.json")

	conf, err := GetOrMakeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ConfigFile{Logger: "File", Frontend: "REST", Server: "ws://example:81/admin"}, *conf)

	again, err := GetConfig(path)
	require.NoError(t, err)
	assert.Equal(t, conf, again)
}

func TestGetOrMakeConfig_KeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queueMirror.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logger":"PSQL","frontend":"TUI","server":"ws://a/admin"}`), 0o644))

	conf, err := GetOrMakeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ConfigFile{Logger: "PSQL", Frontend: "TUI", Server: "ws://a/admin"}, *conf)
}

func TestGetConfig_AllowsComments(t *testing.T) {
	t.Setenv("SERVER_URL", "ws://fallback/admin")
	path := filepath.Join(t.TempDir(), "queueMirror.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  // terminal for local debugging
  "frontend": "TUI",
  /* journal */ "logger": "File",
}`), 0o644))

	conf, err := GetConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "TUI", conf.Frontend)
	assert.Equal(t, "File", conf.Logger)
	assert.Equal(t, "ws://fallback/admin", conf.Server, "missing fields keep their defaults")
}

func TestGetOrMakeConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queueMirror.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logger":`), 0o644))

	_, err := GetOrMakeConfig(path)
	assert.Error(t, err)
}
