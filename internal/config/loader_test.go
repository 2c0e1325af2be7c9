// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoader_DefaultsOnly(t *testing.T) {
	l := NewLoader("", "test-version")
	cfg, err := l.Load()
	require.NoError(t, err)
	require.Equal(t, "test-version", cfg.Version)
	require.Equal(t, Default().ListenAddr, cfg.ListenAddr)
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":9999\"\ntemplateDir: \"/srv/templates\"\noutboundAllowedHosts: [\"example.com\"]\n"), 0o600))

	l := NewLoader(path, "test-version")
	cfg, err := l.Load()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.ListenAddr)
	require.Contains(t, cfg.OutboundAllowedHosts, "example.com")
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":9999\"\noutboundAllowedHosts: [\"example.com\"]\n"), 0o600))

	t.Setenv("LAYOUTD_LISTEN_ADDR", ":7777")

	l := NewLoader(path, "test-version")
	cfg, err := l.Load()
	require.NoError(t, err)
	require.Equal(t, ":7777", cfg.ListenAddr)
}

func TestLoader_RejectsUnknownYAMLFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("notARealField: true\n"), 0o600))

	l := NewLoader(path, "test-version")
	_, err := l.Load()
	require.Error(t, err)
}

func TestLoader_RejectsNonYAMLExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	l := NewLoader(path, "test-version")
	_, err := l.Load()
	require.Error(t, err)
}

func TestLoader_ValidatesFinalConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tlsCert: \"/tmp/cert.pem\"\n"), 0o600))

	l := NewLoader(path, "test-version")
	_, err := l.Load()
	require.Error(t, err)
}
