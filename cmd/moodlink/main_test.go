package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/moodlink/config"
)

func TestValidateFlags(t *testing.T) {
	valid := &CLIConfig{LogLevel: "info", LogFormat: "json", ShutdownTimeout: time.Second}
	require.NoError(t, validateFlags(valid))

	bad := *valid
	bad.LogLevel = "verbose"
	assert.Error(t, validateFlags(&bad))

	bad = *valid
	bad.LogFormat = "xml"
	assert.Error(t, validateFlags(&bad))

	bad = *valid
	bad.ConfigPath = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Error(t, validateFlags(&bad))

	help := &CLIConfig{ShowHelp: true}
	assert.NoError(t, validateFlags(help))
}

func TestLoadConfig_RoleFlagOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moodlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("role: receiver\nlink:\n  peer_address: 127.0.0.1:7070\n"), 0o600))

	cfg, err := loadConfig(&CLIConfig{ConfigPath: path, Role: "SENDER"})
	require.NoError(t, err)
	assert.Equal(t, config.RoleSender, cfg.Role)
	assert.Equal(t, "127.0.0.1:7070", cfg.Link.PeerAddress)
}

func TestLoadConfig_InvalidRole(t *testing.T) {
	_, err := loadConfig(&CLIConfig{Role: "observer"})
	assert.Error(t, err)
}
