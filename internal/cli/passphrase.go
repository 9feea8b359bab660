package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dxfview/dxfview/internal/auth"
)

func newPassphraseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "passphrase <passphrase>",
		Short: "Print the bcrypt hash for VIEWER_PASSPHRASE_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassphrase(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
