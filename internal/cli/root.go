// Package cli implements the ledger command-line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/wasteledger/internal/paths"
	"github.com/mesh-intelligence/wasteledger/pkg/store"
	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	jsonMode  bool
	verbose   bool
}

// app carries state shared by the commands of one root command instance.
type app struct {
	flags  rootFlags
	cfg    *viper.Viper
	logger *slog.Logger
	now    func() time.Time
}

// NewRootCmd creates the top-level "ledger" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{now: time.Now})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledger",
		Short: "Record store for the waste-management console",
		Long: `ledger manages the tables behind the waste-management console:
families, workers, collections, vehicles, community reports, rewards and
fines, training records, safety kits, treatment reports and collection routes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return sysError(fmt.Errorf("resolve config dir: %w", err))
			}
			cfg, err := loadConfig(configDir.Path)
			if err != nil {
				return userError(err)
			}
			a.cfg = cfg
			a.logger = newLogger(cmd, a.flags.verbose, cfg.GetString(cfgKeyLogLevel))
			a.logger.Debug("config dir", "path", configDir.Path, "source", configDir.Source)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.wasteledger)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.wasteledger-data)")
	root.PersistentFlags().StringVar(&a.flags.backend, "backend", "", "storage backend: json or sqlite (default: from config, else json)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newAddCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newUpdateCmd(a),
		newTablesCmd(a),
		newStatsCmd(a),
		newQRCmd(a),
		newVerdictCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ledger:", err)
		os.Exit(exitCode(err))
	}
}

// newLogger builds the slog logger for a command. --verbose wins over the
// configured level.
func newLogger(cmd *cobra.Command, verbose bool, level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	return slog.New(handler)
}

// storeConfig resolves backend, data directory and timeout from flags and
// config.yaml.
func (a *app) storeConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	a.logger.Debug("data dir", "path", dataDir.Path, "source", dataDir.Source)
	backend := a.flags.backend
	if backend == "" {
		backend = a.cfg.GetString(cfgKeyBackend)
	}
	cfg := types.Config{
		Backend:        backend,
		DataDir:        dataDir.Path,
		PersistTimeout: a.cfg.GetDuration(cfgKeyPersistTimeout),
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, userError(fmt.Errorf("config: %w", err))
	}
	return cfg, nil
}

// openStore attaches the configured store. The caller must Detach it.
func (a *app) openStore() (types.Store, error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return nil, err
	}
	return a.attach(cfg)
}

func (a *app) attach(cfg types.Config) (types.Store, error) {
	s, err := store.Open(cfg, a.logger)
	if err != nil {
		return nil, sysError(err)
	}
	a.logger.Debug("store attached", "backend", cfg.Backend, "data_dir", cfg.DataDir)
	return s, nil
}

// ensureTable loads a table, reporting a corrupt-data warning without
// failing the command.
func (a *app) ensureTable(cmd *cobra.Command, s types.Store, table string) error {
	err := s.EnsureTable(table)
	if errors.Is(err, types.ErrCorruptData) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v (table started empty, original kept aside)\n", err)
		return nil
	}
	return err
}
