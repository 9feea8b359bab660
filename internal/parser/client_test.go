package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxfview/dxfview/internal/store"
)

const layerJSON = `{"Walls": [{"type": "LINE", "handle": "A1", "start": [0, 0], "end": [10, 0]}]}`

type fakeRunner struct {
	out     []byte
	err     error
	calls   atomic.Int32
	gate    chan struct{}
	mu      sync.Mutex
	lastArg []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastArg = append([]string{name}, args...)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	return f.out, f.err
}

func found(name string) (string, error) { return "/usr/bin/" + name, nil }

func writeDXF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "part.dxf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newClient(r Runner, cache store.Store) *Client {
	return NewClient(Options{
		Python:       "python3",
		ParserScript: "parse_dxf.py",
		RenderScript: "render_dxf_svg.py",
		Runner:       r,
		Cache:        cache,
		LookPath:     found,
	})
}

func TestParsePassesConfigAndDecodes(t *testing.T) {
	r := &fakeRunner{out: []byte(layerJSON)}
	c := newClient(r, nil)
	path := writeDXF(t, "0\nEOF\n")

	d, err := c.Parse(context.Background(), path, map[string]int{"quality": 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Walls"}, d.LayerNames())
	assert.Equal(t, []string{"/usr/bin/python3", "parse_dxf.py", path, "--config", `{"quality":2}`}, r.lastArg)
}

func TestParseFailuresAreDecodeErrors(t *testing.T) {
	path := writeDXF(t, "0\nEOF\n")

	tests := []struct {
		name   string
		runner *fakeRunner
		path   string
	}{
		{name: "non-zero exit", runner: &fakeRunner{err: errors.New("exit status 1: Traceback")}, path: path},
		{name: "undecodable output", runner: &fakeRunner{out: []byte("[]")}, path: path},
		{name: "missing file", runner: &fakeRunner{out: []byte(layerJSON)}, path: filepath.Join(t.TempDir(), "nope.dxf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newClient(tt.runner, nil).Parse(context.Background(), tt.path, nil)
			require.Error(t, err)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tt.path, decodeErr.Path)
		})
	}
}

func TestParseWithoutPython(t *testing.T) {
	c := NewClient(Options{
		Runner:   &fakeRunner{out: []byte(layerJSON)},
		LookPath: func(string) (string, error) { return "", errors.New("not found") },
	})
	assert.Empty(t, c.Python())

	_, err := c.Parse(context.Background(), writeDXF(t, "x"), nil)
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Contains(t, decodeErr.Message, "python")
}

func TestParseConcurrentRequestsShareOneRun(t *testing.T) {
	r := &fakeRunner{out: []byte(layerJSON), gate: make(chan struct{})}
	c := newClient(r, nil)
	path := writeDXF(t, "0\nEOF\n")

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Parse(context.Background(), path, nil)
		}()
	}

	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(r.gate)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestParseUsesCache(t *testing.T) {
	cache := store.NewMemoryStore(8)
	r := &fakeRunner{out: []byte(layerJSON)}
	c := newClient(r, cache)
	path := writeDXF(t, "0\nEOF\n")

	_, err := c.Parse(context.Background(), path, nil)
	require.NoError(t, err)
	_, err = c.Parse(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.calls.Load())

	// Different config is a different entry.
	_, err = c.Parse(context.Background(), path, map[string]bool{"debug": true})
	require.NoError(t, err)
	assert.Equal(t, int32(2), r.calls.Load())
	assert.Equal(t, 2, cache.Len())
}

func TestFailedRunIsNotCached(t *testing.T) {
	cache := store.NewMemoryStore(8)
	c := newClient(&fakeRunner{out: []byte("not json")}, cache)

	_, err := c.Parse(context.Background(), writeDXF(t, "x"), nil)
	require.Error(t, err)
	assert.Zero(t, cache.Len())
}

func TestRenderMarkup(t *testing.T) {
	r := &fakeRunner{out: []byte(`<svg><line/></svg>`)}
	c := newClient(r, nil)
	path := writeDXF(t, "x")

	svg, err := c.RenderMarkup(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, `<svg><line/></svg>`, svg)
	assert.Equal(t, "render_dxf_svg.py", r.lastArg[1])
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(kindParse, []byte("x"), "")
	assert.Equal(t, a, Fingerprint(kindParse, []byte("x"), ""))
	assert.NotEqual(t, a, Fingerprint(kindRender, []byte("x"), ""))
	assert.NotEqual(t, a, Fingerprint(kindParse, []byte("y"), ""))
	assert.NotEqual(t, a, Fingerprint(kindParse, []byte("x"), "{}"))
}

func TestFindPython(t *testing.T) {
	only := func(name string) func(string) (string, error) {
		return func(c string) (string, error) {
			if c == name {
				return "/opt/" + c, nil
			}
			return "", errors.New("missing")
		}
	}

	assert.Equal(t, "/opt/custom", FindPython("custom", "envpy", only("custom")))
	assert.Equal(t, "/opt/envpy", FindPython("", "envpy", only("envpy")))
	assert.Equal(t, "/opt/python", FindPython("", "", only("python")))
	assert.Empty(t, FindPython("", "", only("ruby")))
}
