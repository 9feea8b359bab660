package logbuf

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingKeepsNewest(t *testing.T) {
	ring := NewRing(3)
	log := slog.New(NewHandler(ring, slog.LevelDebug, nil))

	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		log.Info(msg)
	}

	entries := ring.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].Message)
	assert.Equal(t, "e", entries[2].Message)
	assert.Equal(t, 3, ring.Len())
}

func TestHandlerRecordsAttrsAndGroups(t *testing.T) {
	ring := NewRing(10)
	log := slog.New(NewHandler(ring, slog.LevelInfo, nil)).With("session", "sess_1").WithGroup("view")

	log.Debug("dropped")
	log.Info("zoomed", "scale", 1.5)

	entries := ring.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "sess_1", entries[0].Attrs["session"])
	assert.Equal(t, 1.5, entries[0].Attrs["view.scale"])
}

func TestHandlerTeesToNext(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRing(0)
	log := slog.New(NewHandler(ring, slog.LevelWarn, slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	log.Info("only downstream")
	log.Warn("both")

	assert.Contains(t, buf.String(), "only downstream")
	assert.Contains(t, buf.String(), "both")
	require.Len(t, ring.Entries(), 1)
	assert.Equal(t, "both", ring.Entries()[0].Message)
}
