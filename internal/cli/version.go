package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the ledger release, overridable at link time.
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/wasteledger"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ledger version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ledger v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
