package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dxfview/dxfview/internal/drawing"
	"github.com/dxfview/dxfview/internal/engine"
)

type renderFlags struct {
	output    string
	width     float64
	height    float64
	hidden    []string
	boundsBox bool
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "-", "Output SVG file (- for stdout)")
	cmd.Flags().Float64Var(&f.width, "width", 1024, "Viewport width in pixels")
	cmd.Flags().Float64Var(&f.height, "height", 768, "Viewport height in pixels")
	cmd.Flags().StringSliceVar(&f.hidden, "hide", nil, "Layers to hide")
	cmd.Flags().BoolVar(&f.boundsBox, "bounding-box", false, "Draw the content bounding box")
}

func newRenderCommand(opts *Options) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a drawing to SVG",
		Long: `Fit a drawing into a viewport and write it as SVG. Layers become
groups carrying data-layer and shapes carry data-handle.

Examples:
  dxfview render part.dxf -o part.svg
  dxfview render part.dxf --width 1920 --height 1080 --hide Dimensions`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.loadDrawing(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderDrawing(cmd, opts, d, flags)
		},
	}

	flags.register(cmd)
	return cmd
}

func renderDrawing(cmd *cobra.Command, opts *Options, d *drawing.LayeredDrawing, flags renderFlags) error {
	settings := opts.renderer.EngineSettings()
	if flags.boundsBox {
		settings.Style.ShowBoundingBox = true
	}

	eng := engine.NewEngine(engine.WithSettings(settings), engine.WithLogger(slog.Default()))
	vis := drawing.Visibility{}
	for _, layer := range flags.hidden {
		vis[layer] = false
	}
	eng.SetVisibility(vis)
	eng.Resize(flags.width, flags.height)
	eng.LoadDrawing(d)

	return writeOutput(cmd, flags.output, func(w io.Writer) {
		eng.RenderSVG(w)
	})
}

func writeOutput(cmd *cobra.Command, path string, write func(io.Writer)) error {
	if path == "-" || path == "" {
		write(cmd.OutOrStdout())
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	write(w)
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}
