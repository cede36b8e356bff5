package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/okian/leaguemodel/internal/checker"
	"github.com/okian/leaguemodel/internal/report"
	"github.com/okian/leaguemodel/internal/resolver"
	"github.com/okian/leaguemodel/pkg/logger"
)

func newCandidatesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "candidates LEAGUE",
		Short: "List the locations probed for a league, in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.start(cmd.Context())
			if err != nil {
				return err
			}
			id, cs, err := svc.Candidates(args[0])
			if err != nil {
				return err
			}
			report.Candidates(c.out, id, cs)
			return nil
		},
	}
}

func newResolveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve LEAGUE",
		Short: "Locate a league's model artifact and print its local path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.start(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.Resolve(cmd.Context(), args[0])
			var nf *resolver.NotFoundError
			if errors.As(err, &nf) {
				report.NotFound(c.out, nf)
				return err
			}
			if err != nil {
				return err
			}
			report.Resolution(c.out, res)
			return nil
		},
	}
}

func newPublishCmd(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the model registry and rewrite every mirror record",
		Long: `Writes the canonical registry first, then one mirror record per league with
model_type forced to the authoritative tag. Without --file the stored
canonical registry is republished.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.start(cmd.Context())
			if err != nil {
				return err
			}
			sum, err := svc.Publish(cmd.Context(), file)
			if err != nil {
				return err
			}
			report.Publish(c.out, sum)
			return sum.Err()
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "registry JSON document to publish")
	return cmd
}

func newVerifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "verify LEAGUE",
		Short: "Compare a league's mirror records with the canonical registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.start(cmd.Context())
			if err != nil {
				return err
			}
			v, err := svc.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			report.Verification(c.out, v)
			return v.Err()
		},
	}
}

func newVerifyAllCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-all",
		Short: "Flag mirror records with a foreign model type, orphans and gaps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.start(cmd.Context())
			if err != nil {
				return err
			}
			findings, err := svc.VerifyAll(cmd.Context())
			if err != nil {
				return err
			}
			report.Findings(c.out, findings)
			return checker.FindingsErr(findings)
		},
	}
}

func newReconcileCmd(c *cli) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Delete every mirror record and republish from a source of truth",
		Long: `Snapshots the mirror records, deletes them all, republishes from --source
(or the stored canonical registry) and prints the before/after diff.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.start(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := svc.Reconcile(cmd.Context(), source)
			if err != nil {
				return err
			}
			c.log.Info(cmd.Context(), "reconcile run", logger.String("run_id", rep.RunID.String()))
			report.Purged(c.out, rep.Purged)
			report.Publish(c.out, rep.Summary)
			report.Diff(c.out, rep.Diff)
			return rep.Err()
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "registry JSON document to reconcile from")
	return cmd
}
