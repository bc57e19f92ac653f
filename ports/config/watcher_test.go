package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.conf")
	require.NoError(t, os.WriteFile(path, []byte(`caf.scheduler.policy = "sharing"`), 0o644))

	w, err := NewWatcher(path, WatcherOptions{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	require.Equal(t, "sharing", w.Current().StringOr("caf.scheduler", "policy", ""))

	changed := make(chan *Configurator, 1)
	w.OnChange(func(old, next *Configurator) { changed <- next })

	require.NoError(t, w.Start())
	require.NoError(t, os.WriteFile(path, []byte(`caf.scheduler.policy = "stealing"`), 0o644))

	select {
	case next := <-changed:
		require.Equal(t, "stealing", next.StringOr("caf.scheduler", "policy", ""))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
