package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	service "github.com/okian/leaguemodel/internal/app"
	"github.com/okian/leaguemodel/internal/config"
	"github.com/okian/leaguemodel/pkg/logger"
	"github.com/okian/leaguemodel/pkg/metrics"
)

// cli carries state shared by every subcommand of one execution.
type cli struct {
	out        io.Writer
	errOut     io.Writer
	configPath string
	logLevel   string

	cfg *config.Config
	svc *service.Service
	log logger.Logger
}

// run executes one CLI invocation and always releases the service.
func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	c := &cli{out: out, errOut: errOut}
	cmd := newRootCmd(c)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	c.teardown(ctx)
	if err != nil {
		if c.log != nil {
			c.log.Error(ctx, "command failed", logger.Error(err))
		} else {
			fmt.Fprintln(errOut, "error:", err)
		}
	}
	return err
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaguemodel [sub-command]",
		Short: "Resolve league model artifacts and sync the model registry",
		Long: `leaguemodel locates trained league models across the object store and
local artifact directories, publishes the model registry with its per-league
mirror records, and checks the mirrors for drift.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: c.setup,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	cmd.SetOut(c.out)
	cmd.SetErr(c.errOut)

	cmd.PersistentFlags().StringVar(&c.configPath, "config", "",
		`YAML configuration file; defaults to $LEAGUEMODEL_CONFIG`)
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "",
		`log level override (debug, info, warn, error)`)

	cmd.AddCommand(
		newCandidatesCmd(c),
		newResolveCmd(c),
		newPublishCmd(c),
		newVerifyCmd(c),
		newVerifyAllCmd(c),
		newReconcileCmd(c),
		newServeCmd(c),
	)
	return cmd
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if err := logger.InitWithWriter(c.errOut); err != nil {
		return err
	}
	c.log = logger.Named("cli")
	ctx := cmd.Context()

	var err error
	if c.configPath != "" {
		c.cfg, err = config.LoadFile(ctx, c.configPath)
	} else {
		c.cfg, err = config.Load(ctx)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metrics.Init(
		metrics.WithNamespace(c.cfg.Metrics.Namespace),
		metrics.WithSubsystem(c.cfg.Metrics.Subsystem),
		metrics.WithConstLabels(c.cfg.Metrics.ConstLabels),
		metrics.WithHistogramBuckets(c.cfg.Metrics.LatencyBucketsMS),
	)

	level := c.cfg.LogLevel
	if c.logLevel != "" {
		level = c.logLevel
	}
	if err := logger.SetLevelString(level); err != nil {
		c.log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", level), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// start builds the service on first use so help and flag errors never open
// the document store.
func (c *cli) start(ctx context.Context) (*service.Service, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	svc := service.New(c.cfg, service.WithLogger(logger.Get()))
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	c.svc = svc
	return svc, nil
}

func (c *cli) teardown(ctx context.Context) {
	if c.svc != nil {
		c.svc.Stop()
		c.svc = nil
	}
	if c.log != nil {
		c.logTotals(ctx)
	}
}

// logTotals logs the counters of this execution; nothing scrapes a
// discrete run.
func (c *cli) logTotals(ctx context.Context) {
	totals, err := metrics.Totals()
	if err != nil {
		c.log.Debug(ctx, "metrics unavailable", logger.Error(err))
		return
	}
	names := make([]string, 0, len(totals))
	for name, v := range totals {
		if v > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	fields := make([]logger.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, logger.Float64(name, totals[name]))
	}
	c.log.Debug(ctx, "execution metrics", fields...)
}
