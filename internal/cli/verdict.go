package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/wasteledger/internal/verify"
)

func newVerdictCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verdict <table> <id> <verdict.json|->",
		Short: "Attach a verification verdict to a record",
		Long: `Read a verification verdict (JSON) from a file or stdin, validate it,
and merge it into the record as ai_* fields.`,
		Example: `  ledger verdict safety_kits 3 kit-verdict.json
  echo '{"kind":"segregation","quality":"good","confidence":0.9}' | ledger verdict collections 7 -`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[2])
			if err != nil {
				return userError(fmt.Errorf("read verdict: %w", err))
			}
			var v verify.Verdict
			if err := json.Unmarshal(data, &v); err != nil {
				return userError(fmt.Errorf("decode verdict: %w", err))
			}
			if err := v.Validate(); err != nil {
				return userError(fmt.Errorf("verdict: %w", err))
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Detach()

			if err := a.ensureTable(cmd, s, args[0]); err != nil {
				return storeError("verdict", err)
			}
			rec, err := s.Update(args[0], id, v.Fields())
			if err != nil {
				return storeError("verdict", err)
			}
			return writeJSON(cmd, rec)
		},
	}
}

// readInput reads a named file, or stdin when the name is "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}
