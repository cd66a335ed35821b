package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cegidsync/cegidsync/internal/buildinfo"
	"github.com/cegidsync/cegidsync/internal/config"
	"github.com/cegidsync/cegidsync/internal/logging"
	"github.com/cegidsync/cegidsync/internal/store"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:     "cegidsync",
		Short:   "Load Cegid CSV exports into the reporting database",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultFile, "path to cegidsync.yaml")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level, overrides the config file")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (text or json), overrides the config file")

	rootCmd.AddCommand(
		newInitCommand(),
		newRunCommand(opts),
		newServeCommand(opts),
		newDetectCommand(),
		newMigrateCommand(opts),
		newStatusCommand(opts),
	)

	return rootCmd
}

// load reads the config file and builds the logger, flags taking precedence
// over the file and the environment.
func (o *globalOptions) load(stderr io.Writer) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// openStore connects to the configured database, applying migrations first
// when migrate is set.
func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger, migrate bool) (*store.SQL, error) {
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := store.Migrate(st, store.MigrateUp, log); err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	return st, nil
}
