package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newLayersCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "layers <file>",
		Short: "List layers and their entity types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.loadDrawing(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, l := range d.Layers() {
				counts := map[string]int{}
				for _, e := range l.Entities {
					if e != nil {
						counts[e.Header().Type]++
					}
				}
				types := make([]string, 0, len(counts))
				for t, n := range counts {
					types = append(types, fmt.Sprintf("%s=%d", t, n))
				}
				sort.Strings(types)
				_, _ = fmt.Fprintf(out, "%s\t%d\t%s\n", l.Name, len(l.Entities), strings.Join(types, " "))
			}
			return nil
		},
	}
}
