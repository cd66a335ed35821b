package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cegidsync/cegidsync/internal/config"
)

func newInitCommand() *cobra.Command {
	var tenants []string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a cegidsync.yaml and one drop folder per tenant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, tenants, force)
		},
	}

	cmd.Flags().StringSliceVarP(&tenants, "tenant", "t", []string{"default"}, "tenant names, one drop folder each")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing cegidsync.yaml")

	return cmd
}

func runInit(out io.Writer, dir string, tenants []string, force bool) error {
	cfgPath := filepath.Join(dir, config.DefaultFile)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", cfgPath)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	cfg := config.Default(dir, tenants...)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Create directory structure.
	dirs := []string{filepath.Dir(cfg.RunLog)}
	for _, t := range cfg.Tenants {
		dirs = append(dirs, t.CSVPath)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	gitignore := "*.db\nlogs/\n.env.local\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	fmt.Fprintf(out, "Initialized cegidsync at %s (%d tenants)\n", dir, len(cfg.Tenants))
	return nil
}
