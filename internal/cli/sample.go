package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/dxfview/dxfview/internal/drawing"
)

func newSampleCommand(opts *Options) *cobra.Command {
	var (
		flags  renderFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Render the built-in sample drawing",
		Long: `Render the built-in sample drawing, or with --json write it as parser
output that the other commands accept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := drawing.NewSampleDrawing()
			if !asJSON {
				return renderDrawing(cmd, opts, d, flags)
			}
			data, err := json.MarshalIndent(d, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, flags.output, func(w io.Writer) {
				_, _ = w.Write(append(data, '\n'))
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write parser-format JSON instead of SVG")
	return cmd
}
