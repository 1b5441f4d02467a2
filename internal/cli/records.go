package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

func newAddCmd(a *app) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "add <table> [key=value...]",
		Short: "Add a record to a table",
		Long: `Add a record to a table and print it with its assigned id and
created_at. Fields come from --data (a JSON object) and key=value
arguments; key=value wins when both set the same field.`,
		Example: `  ledger add families family_name=Rao address="12 MG Road" members=4
  ledger add collections --data '{"family_id": 1, "date": "2026-03-01"}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := types.Record{}
			if data != "" {
				if err := json.Unmarshal([]byte(data), &rec); err != nil {
					return userError(fmt.Errorf("invalid --data: %w", err))
				}
				if rec == nil {
					rec = types.Record{}
				}
			}
			fields, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			for k, v := range fields {
				rec[k] = v
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Detach()

			if err := a.ensureTable(cmd, s, args[0]); err != nil {
				return storeError("add", err)
			}
			stored, err := s.Add(args[0], rec)
			if err != nil {
				return storeError("add", err)
			}
			return writeJSON(cmd, stored)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "record fields as a JSON object")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Print one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Detach()

			if err := a.ensureTable(cmd, s, args[0]); err != nil {
				return storeError("get", err)
			}
			rec, err := s.Get(args[0], id)
			if err != nil {
				return storeError("get", err)
			}
			return writeJSON(cmd, rec)
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <table> [key=value...]",
		Short: "List records matching every given field",
		Example: `  ledger list workers status=active
  ledger list collections date=2026-03-01 family_id=1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Detach()

			if err := a.ensureTable(cmd, s, args[0]); err != nil {
				return storeError("list", err)
			}
			recs, err := s.Query(args[0], types.Filter(fields))
			if err != nil {
				return storeError("list", err)
			}
			return writeJSON(cmd, recs)
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <table> <id> key=value...",
		Short: "Merge fields into a record",
		Long: `Merge the given fields into an existing record and stamp updated_at.
The id and created_at fields cannot be changed.`,
		Example: `  ledger update workers 2 status=inactive`,
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			patch, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Detach()

			if err := a.ensureTable(cmd, s, args[0]); err != nil {
				return storeError("update", err)
			}
			rec, err := s.Update(args[0], id, patch)
			if err != nil {
				return storeError("update", err)
			}
			return writeJSON(cmd, rec)
		},
	}
}
