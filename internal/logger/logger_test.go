package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyFileWritesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "2001-01-01.log")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

	d := &dailyFile{dir: dir}
	_, err := d.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, d.Close())

	today := filepath.Join(dir, time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(today)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "file past retention pruned")
}

func TestHandlerLevelGate(t *testing.T) {
	h := &handler{mu: new(sync.Mutex), level: slog.LevelInfo}
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), LevelFatal))
}

func TestHandlerAttrRendering(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	h := &handler{mu: new(sync.Mutex), level: slog.LevelInfo}

	nh := h.WithAttrs([]slog.Attr{slog.String("listener", "tcp")}).(*handler)
	assert.Equal(t, " listener=tcp", nh.attrs)

	g := nh.WithGroup("conn").(*handler)
	assert.Equal(t, " conn.id=7", g.formatAttr(slog.String("id", "7")))
}
