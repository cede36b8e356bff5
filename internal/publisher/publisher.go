// Package publisher writes the canonical model registry and its per-league
// mirror records.
package publisher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/leaguemodel/internal/adapters/repository"
	"github.com/okian/leaguemodel/internal/domain/league"
	"github.com/okian/leaguemodel/internal/domain/registry"
	"github.com/okian/leaguemodel/pkg/logger"
	"github.com/okian/leaguemodel/pkg/metrics"
)

// Override records a league whose canonical model type was replaced in its
// mirror by the authoritative tag.
type Override struct {
	League league.ID
	From   string
	To     string
}

// Summary is the outcome of one publish run.
type Summary struct {
	ModelType    string
	LastUpdated  string
	Succeeded    []league.ID
	Failed       []LeagueFailure
	Overridden   []Override
	CanonicalErr error
	// Keys lists every mirror key written.
	Keys []string
}

// Attempted is the number of leagues the run tried to mirror.
func (s Summary) Attempted() int {
	return len(s.Succeeded) + len(s.Failed)
}

// Err returns a *PartialPublishError when any write failed.
func (s Summary) Err() error {
	if s.CanonicalErr == nil && len(s.Failed) == 0 {
		return nil
	}
	return &PartialPublishError{Canonical: s.CanonicalErr, Failed: s.Failed, Attempted: s.Attempted()}
}

// Publisher writes registry state to a repository.
type Publisher struct {
	store     repository.Store
	logger    logger.Logger
	dualWrite bool
}

// New creates a Publisher. Dual writes are on unless disabled.
func New(store repository.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:     store,
		logger:    logger.Nop(),
		dualWrite: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish overwrites the canonical registry, then writes one mirror record
// per league with its model type forced to modelType. Every league is
// attempted; failures are collected in the summary. The returned error is
// reserved for input that cannot be published at all.
func (p *Publisher) Publish(ctx context.Context, reg *registry.Registry, modelType string) (Summary, error) {
	modelType = strings.TrimSpace(modelType)
	if reg == nil {
		return Summary{}, fmt.Errorf("%w: nil registry", ErrInvalidInput)
	}
	if modelType == "" {
		return Summary{}, fmt.Errorf("%w: empty model type", ErrInvalidInput)
	}
	entries, err := reg.Entries()
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	start := time.Now()
	sum := Summary{ModelType: modelType, LastUpdated: reg.LastUpdated}

	if err := p.store.PutCanonical(ctx, reg); err != nil {
		sum.CanonicalErr = err
		metrics.RecordPublishWrite(registry.RegistryCollection, false)
		p.logger.Error(ctx, "canonical registry write failed", logger.Error(err))
	} else {
		metrics.RecordPublishWrite(registry.RegistryCollection, true)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		p.publishEntry(ctx, &sum, e, reg.LastUpdated)
	}

	metrics.RecordPublishLatency(float64(time.Since(start).Milliseconds()))
	p.logger.Info(ctx, "publish finished",
		logger.Int("succeeded", len(sum.Succeeded)),
		logger.Int("failed", len(sum.Failed)),
		logger.Int("overridden", len(sum.Overridden)),
		logger.Bool("canonical_written", sum.CanonicalErr == nil),
		logger.String("model_type", modelType),
	)
	return sum, nil
}

func (p *Publisher) publishEntry(ctx context.Context, sum *Summary, e registry.Entry, lastUpdated string) {
	if e.Record.ModelType != sum.ModelType {
		sum.Overridden = append(sum.Overridden, Override{League: e.ID, From: e.Record.ModelType, To: sum.ModelType})
		metrics.RecordModelTypeOverride()
		p.logger.Debug(ctx, "forcing authoritative model type",
			logger.String("league", e.ID.String()),
			logger.String("from", e.Record.ModelType),
			logger.String("to", sum.ModelType),
		)
	}

	mirror := registry.BuildMirror(e.ID, e.Record, sum.ModelType, lastUpdated)
	var failure *LeagueFailure
	for _, key := range e.ID.Keys(p.dualWrite) {
		if err := p.store.PutMirror(ctx, key, mirror); err != nil {
			metrics.RecordPublishWrite(registry.MirrorCollection, false)
			p.logger.Error(ctx, "mirror write failed",
				logger.String("league", e.ID.String()),
				logger.String("key", key),
				logger.Error(err),
			)
			if failure == nil {
				failure = &LeagueFailure{League: e.ID, Key: key, Err: err}
			}
			continue
		}
		metrics.RecordPublishWrite(registry.MirrorCollection, true)
		sum.Keys = append(sum.Keys, key)
	}
	if failure != nil {
		sum.Failed = append(sum.Failed, *failure)
		return
	}
	sum.Succeeded = append(sum.Succeeded, e.ID)
}

// PublishStored republishes mirrors from the canonical registry already in
// the store.
func (p *Publisher) PublishStored(ctx context.Context, modelType string) (Summary, error) {
	reg, err := p.store.Canonical(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load canonical registry: %w", err)
	}
	return p.Publish(ctx, reg, modelType)
}
