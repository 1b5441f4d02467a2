package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/wasteledger/internal/paths"
	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	var global bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize ledger storage",
		Long: `Create the configuration and data directories, write config.yaml if it
is missing, and load every standard table. With --global the per-user
platform directories are used unless overridden by flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a, global)
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "use the per-user platform directories")
	return cmd
}

func runInit(cmd *cobra.Command, a *app, global bool) error {
	resolved, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	configDir := resolved.Path
	if global && a.flags.configDir == "" {
		if configDir, err = paths.UserConfigDir(); err != nil {
			return sysError(fmt.Errorf("resolve user config dir: %w", err))
		}
		if a.cfg, err = loadConfig(configDir); err != nil {
			return userError(err)
		}
	}

	written := configFile{
		Backend:        a.cfg.GetString(cfgKeyBackend),
		DataDir:        a.flags.dataDir,
		PersistTimeout: a.cfg.GetDuration(cfgKeyPersistTimeout).String(),
		LogLevel:       a.cfg.GetString(cfgKeyLogLevel),
	}
	if a.flags.backend != "" {
		written.Backend = a.flags.backend
	}
	if global && a.flags.dataDir == "" && a.cfg.GetString(cfgKeyDataDir) == "" {
		dataDir, err := paths.UserDataDir()
		if err != nil {
			return sysError(fmt.Errorf("resolve user data dir: %w", err))
		}
		a.flags.dataDir = dataDir
		written.DataDir = dataDir
	}

	cfg, err := a.storeConfig()
	if err != nil {
		return err
	}

	created, err := writeConfigIfMissing(configDir, written)
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}
	if created {
		a.logger.Debug("config written", "dir", configDir)
	}

	s, err := a.attach(cfg)
	if err != nil {
		return err
	}
	defer s.Detach()

	for _, name := range types.StandardTableNames {
		if err := a.ensureTable(cmd, s, name); err != nil {
			return storeError("initialize table "+name, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Ledger initialized in %s (%s backend)\n", cfg.DataDir, cfg.Backend)
	return nil
}
