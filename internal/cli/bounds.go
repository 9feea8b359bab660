package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dxfview/dxfview/internal/engine"
)

type boundsResult struct {
	path   string
	box    engine.BoundingBox
	report engine.BoundsReport
}

func newBoundsCommand(opts *Options) *cobra.Command {
	var parallel int

	cmd := &cobra.Command{
		Use:   "bounds <file>...",
		Short: "Print the content bounds of drawings",
		Long: `Compute the padded content bounding box of each drawing, ignoring
outlier coordinates and correcting degenerate extents.

Examples:
  dxfview bounds part.dxf
  dxfview bounds --parallel 8 drawings/*.dxf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]boundsResult, len(args))
			cfg := opts.renderer.EngineSettings().Bounds

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(parallel, 1))
			for i, path := range args {
				g.Go(func() error {
					d, err := opts.loadDrawing(ctx, path)
					if err != nil {
						return err
					}
					box, report := engine.ComputeBoundsReport(d.VisibleEntities(nil), cfg)
					results[i] = boundsResult{path: path, box: box, report: report}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				note := r.report.Corrected
				if r.report.Fallback {
					note = "fallback"
				}
				if note == "" {
					note = "-"
				}
				_, _ = fmt.Fprintf(out, "%s\tminX=%.3f minY=%.3f width=%.3f height=%.3f outliers=%d %s\n",
					r.path, r.box.MinX, r.box.MinY, r.box.Width, r.box.Height, r.report.Outliers, note)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", 4, "Files parsed concurrently")
	return cmd
}
