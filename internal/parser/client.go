// Package parser drives the external DXF parsing and SVG rendering scripts.
package parser

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/dxfview/dxfview/internal/drawing"
	"github.com/dxfview/dxfview/internal/store"
)

const (
	kindParse  = "parse"
	kindRender = "render"
)

// DecodeError reports a failed parse or render run: the runtime was missing,
// the script exited non-zero, or its output could not be decoded.
type DecodeError struct {
	Path    string
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Path, e.Message)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type Options struct {
	Python       string // interpreter path; discovered when empty
	ParserScript string
	RenderScript string
	Runner       Runner
	Cache        store.Store
	Logger       *slog.Logger
	LookPath     func(string) (string, error)
}

type Client struct {
	python       string
	parserScript string
	renderScript string
	runner       Runner
	cache        store.Store
	log          *slog.Logger
	group        singleflight.Group
}

func NewClient(opts Options) *Client {
	c := &Client{
		python:       FindPython(opts.Python, os.Getenv("PYTHON"), opts.LookPath),
		parserScript: opts.ParserScript,
		renderScript: opts.RenderScript,
		runner:       opts.Runner,
		cache:        opts.Cache,
		log:          opts.Logger,
	}
	if c.runner == nil {
		c.runner = ExecRunner{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Python returns the discovered interpreter, empty if none was found.
func (c *Client) Python() string { return c.python }

// Parse runs the parser script on path and decodes its layer map. cfg is
// passed to the script as --config JSON when non-nil.
func (c *Client) Parse(ctx context.Context, path string, cfg any) (*drawing.LayeredDrawing, error) {
	out, err := c.run(ctx, kindParse, c.parserScript, path, cfg, func(b []byte) error {
		_, err := drawing.Decode(b)
		return err
	})
	if err != nil {
		return nil, err
	}
	return drawing.Decode(out)
}

// RenderMarkup runs the SVG renderer script on path.
func (c *Client) RenderMarkup(ctx context.Context, path string, cfg any) (string, error) {
	out, err := c.run(ctx, kindRender, c.renderScript, path, cfg, nil)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// run de-duplicates identical concurrent requests. The first caller's
// context governs the shared run.
func (c *Client) run(ctx context.Context, kind, script, path string, cfg any, validate func([]byte) error) ([]byte, error) {
	var cfgJSON string
	if cfg != nil {
		b, err := json.Marshal(cfg)
		if err != nil {
			return nil, &DecodeError{Path: path, Message: "encode config", Err: err}
		}
		cfgJSON = string(b)
	}

	key := kind + "|" + path + "|" + cfgJSON
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		return c.runOnce(ctx, kind, script, path, cfgJSON, validate)
	})
	if shared {
		c.log.Debug("parser run shared", "kind", kind, "path", path)
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Client) runOnce(ctx context.Context, kind, script, path, cfgJSON string, validate func([]byte) error) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Message: "read drawing", Err: err}
	}

	key := Fingerprint(kind, content, cfgJSON)
	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.log.Warn("cache lookup failed", "kind", kind, "path", path, "error", err)
		} else if ok {
			c.log.Debug("cache hit", "kind", kind, "path", path)
			return cached, nil
		}
	}

	if c.python == "" {
		return nil, &DecodeError{Path: path, Message: "python runtime not found"}
	}

	args := []string{script, path}
	if cfgJSON != "" {
		args = append(args, "--config", cfgJSON)
	}

	c.log.Info("running script", "kind", kind, "python", c.python, "script", script, "path", path)
	out, err := c.runner.Run(ctx, c.python, args...)
	if err != nil {
		return nil, &DecodeError{Path: path, Message: err.Error(), Err: err}
	}
	if validate != nil {
		if err := validate(out); err != nil {
			return nil, &DecodeError{Path: path, Message: "undecodable output", Err: err}
		}
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, key, out); err != nil {
			c.log.Warn("cache store failed", "kind", kind, "path", path, "error", err)
		}
	}
	return out, nil
}

// Fingerprint keys cached output by request kind, file content and config.
func Fingerprint(kind string, content []byte, cfgJSON string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte(cfgJSON))
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}
