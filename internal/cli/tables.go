package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

// tableCount is one row of the tables listing.
type tableCount struct {
	Name    string `json:"name"`
	Records int    `json:"records"`
}

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables with their record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Detach()

			for _, name := range types.StandardTableNames {
				if err := a.ensureTable(cmd, s, name); err != nil {
					return storeError("tables", err)
				}
			}
			names, err := s.Tables()
			if err != nil {
				return storeError("tables", err)
			}
			rows := make([]tableCount, 0, len(names))
			for _, name := range names {
				recs, err := s.Query(name, nil)
				if err != nil {
					return storeError("tables", err)
				}
				rows = append(rows, tableCount{Name: name, Records: len(recs)})
			}

			if a.flags.jsonMode {
				return writeJSON(cmd, rows)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tRECORDS")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%d\n", r.Name, r.Records)
			}
			return w.Flush()
		},
	}
}
