// Package cli implements the dxfview command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dxfview/dxfview/internal/config"
	"github.com/dxfview/dxfview/internal/drawing"
	"github.com/dxfview/dxfview/internal/parser"
)

const Version = "0.3.0"

// Options holds the persistent flags and what they resolve to.
type Options struct {
	ConfigPath   string
	Debug        bool
	Python       string
	ParserScript string

	renderer config.Renderer
	parser   *parser.Client
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "dxfview",
		Short: "Inspect and render DXF drawings",
		Long: `dxfview computes content bounds, lists layers and renders DXF drawings
to SVG using the same viewport engine as the web viewer.

Files ending in .json are read as parser output; anything else is run
through the Python parser script first.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if opts.Debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			r, err := config.LoadRenderer(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.renderer = r
			opts.parser = parser.NewClient(parser.Options{
				Python:       opts.Python,
				ParserScript: opts.ParserScript,
				Logger:       slog.Default(),
			})
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Renderer config file (YAML or JSON)")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.Python, "python", "", "Python interpreter (default: $PYTHON, python3)")
	cmd.PersistentFlags().StringVar(&opts.ParserScript, "parser-script", "./python/parse_dxf.py", "DXF parser script")

	cmd.AddCommand(newBoundsCommand(opts))
	cmd.AddCommand(newRenderCommand(opts))
	cmd.AddCommand(newLayersCommand(opts))
	cmd.AddCommand(newSampleCommand(opts))
	cmd.AddCommand(newPassphraseCommand())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadDrawing reads parser JSON directly or parses a DXF file.
func (o *Options) loadDrawing(ctx context.Context, path string) (*drawing.LayeredDrawing, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		d, err := drawing.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return d, nil
	}
	return o.parser.Parse(ctx, path, o.renderer)
}
