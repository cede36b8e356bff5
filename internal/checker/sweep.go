package checker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/okian/leaguemodel/internal/adapters/repository"
	"github.com/okian/leaguemodel/internal/domain/league"
	"github.com/okian/leaguemodel/pkg/logger"
	"github.com/okian/leaguemodel/pkg/metrics"
)

// Reason classifies a VerifyAll finding.
type Reason string

// Finding reasons.
const (
	ReasonModelType Reason = "model_type"
	ReasonOrphan    Reason = "orphan"
	ReasonMalformed Reason = "malformed"
	ReasonMissing   Reason = "missing"
)

// Finding flags one mirror key, or one canonical league with no mirror.
type Finding struct {
	Key    string
	Reason Reason
	Detail string
}

// VerifyAll sweeps every stored mirror. It flags records whose model_type is
// not the authoritative tag, records that do not decode, and records with no
// canonical entry. Canonical leagues without any mirror are flagged as
// missing. Findings are ordered by key, then reason.
func (c *Checker) VerifyAll(ctx context.Context) ([]Finding, error) {
	mirrors, err := c.store.Mirrors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mirrors: %w", err)
	}
	reg, err := c.store.Canonical(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	var findings []Finding
	covered := make(map[string]bool, len(mirrors))
	for _, m := range mirrors {
		if m.DecodeErr != nil {
			findings = append(findings, Finding{Key: m.Key, Reason: ReasonMalformed, Detail: m.DecodeErr.Error()})
			continue
		}
		if m.Record.ModelType != c.modelType {
			findings = append(findings, Finding{
				Key:    m.Key,
				Reason: ReasonModelType,
				Detail: fmt.Sprintf("model_type %q, expected %q", m.Record.ModelType, c.modelType),
			})
		}
		id, perr := league.Parse(m.Key)
		if perr != nil || reg == nil {
			findings = append(findings, Finding{Key: m.Key, Reason: ReasonOrphan, Detail: "no canonical registry entry"})
			continue
		}
		if _, ok := reg.Lookup(id); !ok {
			findings = append(findings, Finding{Key: m.Key, Reason: ReasonOrphan, Detail: "no canonical registry entry"})
			continue
		}
		covered[id.String()] = true
	}

	if reg != nil {
		entries, err := reg.Entries()
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !covered[e.ID.String()] {
				findings = append(findings, Finding{Key: e.ID.String(), Reason: ReasonMissing, Detail: "no mirror record"})
			}
		}
	}

	sortFindings(findings)
	for _, f := range findings {
		metrics.RecordDriftFinding(string(f.Reason))
	}
	c.logger.Info(ctx, "mirror sweep finished",
		logger.Int("mirrors", len(mirrors)),
		logger.Int("findings", len(findings)),
	)
	return findings, nil
}

// Purge deletes every mirror record and returns the deleted keys. On error
// the keys deleted so far are returned with it.
func (c *Checker) Purge(ctx context.Context) ([]string, error) {
	mirrors, err := c.store.Mirrors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mirrors: %w", err)
	}
	deleted := make([]string, 0, len(mirrors))
	defer func() { metrics.RecordMirrorsPurged(len(deleted)) }()
	for _, m := range mirrors {
		if err := c.store.DeleteMirror(ctx, m.Key); err != nil {
			return deleted, fmt.Errorf("delete mirror %s: %w", m.Key, err)
		}
		deleted = append(deleted, m.Key)
	}
	c.logger.Info(ctx, "mirrors purged", logger.Int("deleted", len(deleted)))
	return deleted, nil
}

func sortFindings(findings []Finding) {
	ids := make(map[string]league.ID, len(findings))
	for _, f := range findings {
		if id, err := league.Parse(f.Key); err == nil {
			ids[f.Key] = id
		}
	}
	less := func(a, b Finding) bool {
		ia, oka := ids[a.Key]
		ib, okb := ids[b.Key]
		switch {
		case a.Key == b.Key:
			return a.Reason < b.Reason
		case oka && okb:
			if ia.Equal(ib) {
				return a.Key < b.Key
			}
			return league.Less(ia, ib)
		default:
			return a.Key < b.Key
		}
	}
	sort.SliceStable(findings, func(i, j int) bool { return less(findings[i], findings[j]) })
}
