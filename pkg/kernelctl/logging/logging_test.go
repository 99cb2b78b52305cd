package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"ERROR", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitAndGet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernelctl.log")

	err := Init(Config{Level: "debug", Path: path})
	require.NoError(t, err)
	defer func() { require.NoError(t, Close()) }()

	logger := Get("worker")
	require.NotNil(t, logger)
	logger.Info("transaction started", "installs", 1)

	// Same component yields the same logger.
	assert.Same(t, logger, Get("worker"))

	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "transaction started")
	assert.Contains(t, string(data), "worker")
}

func TestComponentLevelOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernelctl.log")

	err := Init(Config{
		Level:      "error",
		Path:       path,
		Components: map[string]string{"catalog": "debug"},
	})
	require.NoError(t, err)
	defer func() { _ = Close() }()

	Get("catalog").Debug("sync listing parsed")
	Get("worker").Debug("should be filtered")

	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sync listing parsed")
	assert.NotContains(t, string(data), "should be filtered")
}

func TestSubscribe(t *testing.T) {
	dir := t.TempDir()
	err := Init(Config{Level: "info", Path: filepath.Join(dir, "k.log")})
	require.NoError(t, err)
	defer func() { _ = Close() }()

	ch := Subscribe()
	Get("sched").Info("service restarted")

	select {
	case entry := <-ch:
		assert.Equal(t, "sched", entry.Component)
		assert.Equal(t, "service restarted", entry.Message)
		assert.Equal(t, LevelInfo, entry.Level)
	default:
		t.Fatal("expected a log entry on the subscription channel")
	}

	Unsubscribe(ch)
}

func TestBufferRing(t *testing.T) {
	b := NewBuffer(3)

	for _, msg := range []string{"a", "b", "c", "d"} {
		b.Add(Entry{Message: msg})
	}

	assert.Equal(t, 3, b.Len())

	entries := b.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].Message)
	assert.Equal(t, "d", entries[2].Message)

	last := b.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, "c", last[0].Message)
	assert.Equal(t, "d", last[1].Message)

	b.Clear()
	assert.Equal(t, 0, b.Len())
}

func TestRotatingWriterRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "k.log")

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 32})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	_, err = w.Write([]byte("first entry that fills the file\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second entry forces rotation\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2, "expected main log plus a rotated file")
}
