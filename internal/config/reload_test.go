// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHolder_GetReturnsInitial(t *testing.T) {
	cfg := Default()
	h := NewHolder(cfg, NewLoader("", "v1"))
	require.Equal(t, cfg.ListenAddr, h.Get().ListenAddr)
}

func TestHolder_ReloadSwapsConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":1111\"\n"), 0o600))

	loader := NewLoader(path, "v1")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)
	require.Equal(t, ":1111", h.Get().ListenAddr)

	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":2222\"\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))
	require.Equal(t, ":2222", h.Get().ListenAddr)
}

func TestHolder_ReloadKeepsOldOnValidationFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":1111\"\n"), 0o600))

	loader := NewLoader(path, "v1")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("tlsCert: \"/tmp/only-cert.pem\"\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	require.Equal(t, ":1111", h.Get().ListenAddr)
}

func TestHolder_StartWatcherNoopWithoutConfigPath(t *testing.T) {
	h := NewHolder(Default(), NewLoader("", "v1"))
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}

func TestHolder_WatcherReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":1111\"\n"), 0o600))

	loader := NewLoader(path, "v1")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartWatcher(ctx))
	defer h.Stop()

	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":3333\"\n"), 0o600))

	require.Eventually(t, func() bool {
		return h.Get().ListenAddr == ":3333"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestHolder_RegisterListenerReceivesReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":1111\"\n"), 0o600))

	loader := NewLoader(path, "v1")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	ch := make(chan Config, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":4444\"\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	select {
	case cfg := <-ch:
		require.Equal(t, ":4444", cfg.ListenAddr)
	case <-time.After(time.Second):
		t.Fatal("listener did not receive reload notification")
	}
}
