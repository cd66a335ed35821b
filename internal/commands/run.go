package commands

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cegidsync/cegidsync/internal/batch"
	"github.com/cegidsync/cegidsync/internal/config"
	"github.com/cegidsync/cegidsync/internal/importer"
	"github.com/cegidsync/cegidsync/internal/report"
	"github.com/cegidsync/cegidsync/internal/runlog"
	"github.com/cegidsync/cegidsync/internal/stager"
	"github.com/cegidsync/cegidsync/internal/store"
)

func newRunCommand(opts *globalOptions) *cobra.Command {
	var migrate bool
	var skipStage bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stage exports, then import every tenant's CSV files once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := openStore(ctx, cfg, log, migrate)
			if err != nil {
				return err
			}
			defer st.Close()

			if skipStage {
				cfg.Stage.Command = ""
			}
			p := &pass{cfg: cfg, log: log, store: st, out: cmd.OutOrStdout()}
			p.run(ctx)
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before importing")
	cmd.Flags().BoolVar(&skipStage, "skip-stage", false, "do not run the stage command")

	return cmd
}

// pass is one stage-then-import cycle, shared by run and serve.
type pass struct {
	cfg   *config.Config
	log   *logrus.Logger
	store store.Store
	out   io.Writer
	extra []batch.Sink
}

func (p *pass) run(ctx context.Context) bool {
	p.stage(ctx)

	sinks := batch.Sinks{report.NewLogSink(p.log, p.out)}
	if p.cfg.RunLog != "" {
		sinks = append(sinks, runlog.NewSink(p.cfg.RunLog, p.log))
	}
	sinks = append(sinks, p.extra...)

	im := importer.New(importer.Options{BatchSize: p.cfg.BatchSize})
	return batch.New(p.store, im, tenantsOf(p.cfg), batch.WithSink(sinks)).Run(ctx)
}

// stage runs the configured fetch command. Its failure is logged and the
// import goes ahead with whatever files are present.
func (p *pass) stage(ctx context.Context) {
	if p.cfg.Stage.Command == "" {
		return
	}
	if p.cfg.Stage.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Stage.Timeout)
		defer cancel()
	}

	res, err := stager.Run(ctx, p.cfg.Stage.Command)
	l := p.log.WithFields(logrus.Fields{"command": res.Command, "duration": report.FormatDuration(res.Duration)})
	if res.Stdout != "" {
		l = l.WithField("stdout", res.Stdout)
	}
	if err != nil {
		l.WithError(err).WithField("exit_code", res.ExitCode).Error("stage command failed, importing files already present")
		return
	}
	l.Info("stage command finished")
}

func tenantsOf(cfg *config.Config) []batch.Tenant {
	tenants := make([]batch.Tenant, len(cfg.Tenants))
	for i, t := range cfg.Tenants {
		tenants[i] = batch.Tenant{Name: t.Name, Dir: t.CSVPath}
	}
	return tenants
}
