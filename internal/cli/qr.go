package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/wasteledger/internal/qrpayload"
	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

func newQRCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "qr <families|workers> <id>",
		Short: "Print the identity-code payload for a family or worker",
		Long: `Print the JSON payload encoded in a household or worker identity code.
Each call issues a fresh code.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{types.FamiliesTable, types.WorkersTable},
		RunE: func(cmd *cobra.Command, args []string) error {
			table := args[0]
			if table != types.FamiliesTable && table != types.WorkersTable {
				return userError(fmt.Errorf("qr: table must be %s or %s, got %q",
					types.FamiliesTable, types.WorkersTable, table))
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Detach()

			if err := a.ensureTable(cmd, s, table); err != nil {
				return storeError("qr", err)
			}
			rec, err := s.Get(table, id)
			if err != nil {
				return storeError("qr", err)
			}
			p, err := qrpayload.FromRecord(table, rec, a.now())
			if err != nil {
				return userError(err)
			}
			payload, err := p.Encode()
			if err != nil {
				return sysError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), payload)
			return nil
		},
	}
}
