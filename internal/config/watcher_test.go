package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherStopReleasesConsumers(t *testing.T) {
	cw, err := StartWatcher(t.TempDir(), slog.Default())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for range cw.ReloadChan() {
		}
		close(done)
	}()

	require.NoError(t, cw.Stop())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload channel still open after Stop")
	}
}
