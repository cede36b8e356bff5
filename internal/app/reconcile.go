package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okian/leaguemodel/internal/domain/registry"
	"github.com/okian/leaguemodel/internal/publisher"
	"github.com/okian/leaguemodel/internal/report"
	"github.com/okian/leaguemodel/pkg/logger"
	"github.com/okian/leaguemodel/pkg/metrics"
)

// ReconcileReport is the audit record of one reconcile run.
type ReconcileReport struct {
	RunID      uuid.UUID
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Before     report.Snapshot
	After      report.Snapshot
	Purged     []string
	Diff       string
	Summary    publisher.Summary
}

// Err reports a publish that did not complete.
func (r ReconcileReport) Err() error { return r.Summary.Err() }

// Reconcile replaces every mirror record with a fresh projection of source:
// a registry file, or the stored canonical document when source is empty.
// The source is loaded before anything is deleted.
func (s *Service) Reconcile(ctx context.Context, source string) (ReconcileReport, error) {
	rep := ReconcileReport{RunID: uuid.New(), Source: source, StartedAt: time.Now().UTC()}
	if rep.Source == "" {
		rep.Source = registry.RegistryCollection + "/" + registry.RegistryKey
	}
	log := s.loggerFor().Named("reconcile")
	runID := logger.String("run_id", rep.RunID.String())

	ok := false
	defer func() { metrics.RecordReconcileRun(ok) }()

	reg, err := s.LoadRegistry(ctx, source)
	if err != nil {
		log.Error(ctx, "reconcile source unusable", runID, logger.Error(err))
		return rep, err
	}

	if rep.Before, err = s.snapshot(ctx); err != nil {
		return rep, err
	}
	if rep.Purged, err = s.checker.Purge(ctx); err != nil {
		log.Error(ctx, "purge failed", runID, logger.Strings("deleted", rep.Purged), logger.Error(err))
		return rep, err
	}
	if rep.Summary, err = s.publisher.Publish(ctx, reg, s.cfg.AuthoritativeModelType); err != nil {
		log.Error(ctx, "publish failed after purge", runID, logger.Error(err))
		return rep, err
	}
	if rep.After, err = s.snapshot(ctx); err != nil {
		return rep, err
	}
	rep.Diff = report.MirrorDiff(rep.Before, rep.After)
	rep.FinishedAt = time.Now().UTC()

	ok = rep.Err() == nil
	log.Info(ctx, "reconcile finished",
		runID,
		logger.String("source", rep.Source),
		logger.Int("purged", len(rep.Purged)),
		logger.Int("published", len(rep.Summary.Succeeded)),
		logger.Int("failed", len(rep.Summary.Failed)),
		logger.Bool("changed", rep.Diff != ""),
		logger.Duration("took", rep.FinishedAt.Sub(rep.StartedAt)),
	)
	return rep, nil
}

func (s *Service) snapshot(ctx context.Context) (report.Snapshot, error) {
	stored, err := s.repo.Mirrors(ctx)
	if err != nil {
		return report.Snapshot{}, err
	}
	snap := report.Snapshot{
		Records:   make(map[string]registry.MirrorRecord, len(stored)),
		Malformed: make(map[string]string),
	}
	for _, m := range stored {
		if m.DecodeErr != nil {
			snap.Malformed[m.Key] = string(m.Raw)
			continue
		}
		snap.Records[m.Key] = m.Record
	}
	return snap, nil
}

func (s *Service) loggerFor() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Nop()
	}
	return s.logger
}
