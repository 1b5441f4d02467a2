package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/wasteledger/internal/dashboard"
	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Detach()

			for _, name := range types.StandardTableNames {
				if err := a.ensureTable(cmd, s, name); err != nil {
					return storeError("stats", err)
				}
			}
			stats, err := dashboard.Compute(s, a.now())
			if err != nil {
				return storeError("stats", err)
			}
			return writeJSON(cmd, stats)
		},
	}
}
