package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSample(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.json")
	_, err := run(t, "sample", "--json", "-o", path)
	require.NoError(t, err)
	return path
}

func TestSampleSVGToStdout(t *testing.T) {
	out, err := run(t, "sample", "--width", "400", "--height", "300")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<?xml"))
	assert.Contains(t, out, `data-layer="Holes"`)
	assert.Contains(t, out, `data-handle="2A"`)
}

func TestBoundsFromParserJSON(t *testing.T) {
	a := writeSample(t)
	b := writeSample(t)

	out, err := run(t, "bounds", "--parallel", "2", a, b)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], a), "results keep argument order")
	assert.True(t, strings.HasPrefix(lines[1], b))
	assert.Contains(t, lines[0], "outliers=0")
}

func TestBoundsMissingFile(t *testing.T) {
	_, err := run(t, "bounds", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestBoundsRequiresArgs(t *testing.T) {
	_, err := run(t, "bounds")
	require.Error(t, err)
}

func TestLayers(t *testing.T) {
	out, err := run(t, "layers", writeSample(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Outline\t2\tLINE=1 LWPOLYLINE=1\n")
	assert.Contains(t, out, "Holes\t3\tCIRCLE=2 ELLIPSE=1\n")
	assert.Contains(t, out, "Fill\t1\tHATCH=1\n")
}

func TestRenderHidesLayers(t *testing.T) {
	src := writeSample(t)
	dst := filepath.Join(t.TempDir(), "out.svg")

	_, err := run(t, "render", src, "-o", dst, "--hide", "Holes")
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `data-handle="2A"`)
	assert.Contains(t, string(data), `data-handle="1A"`)
}

func TestRenderWithConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "renderer.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("canvas:\n  colors:\n    background: \"#123456\"\n"), 0o644))

	out, err := run(t, "--config", cfgPath, "sample")
	require.NoError(t, err)
	assert.Contains(t, out, "#123456")
}

func TestBadConfig(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "sample")
	require.Error(t, err)
}

func TestPassphrase(t *testing.T) {
	out, err := run(t, "passphrase", "open sesame")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("open sesame")))
}
