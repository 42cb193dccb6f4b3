package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vbbs.yaml")
	data := []byte(`server:
  name: Night Owl
telnet:
  address: "127.0.0.1:2424"
  poll_interval: 20ms
session:
  allow_registration: false
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Night Owl", cfg.Server.Name)
	require.Equal(t, "Welcome to vBBS!", cfg.Server.Welcome)
	require.Equal(t, "127.0.0.1:2424", cfg.Telnet.Address)
	require.Equal(t, 20*time.Millisecond, cfg.Telnet.PollInterval)
	require.Equal(t, 50*time.Millisecond, cfg.Telnet.WriteTimeout)
	require.False(t, cfg.Session.AllowRegistration)
	require.Equal(t, 3, cfg.Session.MaxLoginAttempts)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vbbs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buffers:\n  input_size: 0\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	Default().Print(&out)
	require.Contains(t, out.String(), "Telnet: :2323 (max 32 connections, poll 50ms)")
	require.Contains(t, out.String(), "Users: users.tsv (registration true)")
	require.Contains(t, out.String(), "Logging: info")
}
