// Package probe computes where a league's model artifact may live.
//
// Candidates is pure: the same league and flags always produce the same
// list in the same order, which is what NotFound diagnostics report back.
package probe

import (
	"fmt"
	"path/filepath"

	"github.com/okian/leaguemodel/internal/domain/league"
)

// Tier names a storage location class.
type Tier string

// Storage tiers in probe order.
const (
	TierRemote         Tier = "remote"
	TierLocalPrimary   Tier = "local_primary"
	TierLocalSecondary Tier = "local_secondary"
)

// Scheme names an artifact naming convention.
type Scheme string

// Naming schemes, current first.
const (
	SchemeCurrent Scheme = "current"
	SchemeLegacy  Scheme = "legacy"
)

// Candidate is one location to check.
type Candidate struct {
	Tier   Tier   `json:"tier"`
	Scheme Scheme `json:"scheme"`
	// Key is an object key for the remote tier and a filesystem path otherwise.
	Key string `json:"key"`
}

// Remote reports whether the candidate lives in the object store.
func (c Candidate) Remote() bool { return c.Tier == TierRemote }

func (c Candidate) String() string {
	return fmt.Sprintf("%s/%s:%s", c.Tier, c.Scheme, c.Key)
}

// layout is one object-store prefix arrangement per scheme.
type layout struct {
	prefix string
	subdir string
}

// remoteLayouts lists the prefix arrangements in probe order; subdir is
// replaced by the scheme's artifact directory.
var remoteLayouts = []layout{
	{prefix: "models/"},
	{prefix: "models/", subdir: "artifacts"},
	{},
	{subdir: "artifacts"},
}

// FileName returns the artifact file name for a league under scheme.
func FileName(id league.ID, scheme Scheme) string {
	if scheme == SchemeLegacy {
		return fmt.Sprintf("league_%s_model.pkl", id)
	}
	return fmt.Sprintf("league_%s_model_optimized.pkl", id)
}

func artifactDir(scheme Scheme) string {
	if scheme == SchemeLegacy {
		return "artifacts"
	}
	return "artifacts_optimized"
}

// RemoteKeys returns the object keys for a league in probe order: every
// current-scheme layout, then every legacy one.
func RemoteKeys(id league.ID) []Candidate {
	out := make([]Candidate, 0, 2*len(remoteLayouts))
	for _, scheme := range []Scheme{SchemeCurrent, SchemeLegacy} {
		name := FileName(id, scheme)
		for _, l := range remoteLayouts {
			key := l.prefix
			if l.subdir != "" {
				key += artifactDir(scheme) + "/"
			}
			out = append(out, Candidate{Tier: TierRemote, Scheme: scheme, Key: key + name})
		}
	}
	return out
}

// Prober holds the local directory layout.
type Prober struct {
	primaryDir   string
	secondaryDir string
}

// New creates a Prober for the given local tier directories.
func New(primaryDir, secondaryDir string) *Prober {
	return &Prober{primaryDir: primaryDir, secondaryDir: secondaryDir}
}

// Candidates returns every location to check for id, remote keys first
// when remoteEnabled, then primary/current, secondary/current,
// primary/legacy, secondary/legacy.
func (p *Prober) Candidates(id league.ID, remoteEnabled bool) []Candidate {
	var out []Candidate
	if remoteEnabled {
		out = RemoteKeys(id)
	}
	for _, scheme := range []Scheme{SchemeCurrent, SchemeLegacy} {
		name := FileName(id, scheme)
		out = append(out,
			Candidate{Tier: TierLocalPrimary, Scheme: scheme, Key: filepath.Join(p.primaryDir, name)},
			Candidate{Tier: TierLocalSecondary, Scheme: scheme, Key: filepath.Join(p.secondaryDir, name)},
		)
	}
	return out
}

// Keys flattens candidates to their keys.
func Keys(cs []Candidate) []string {
	keys := make([]string, len(cs))
	for i, c := range cs {
		keys[i] = c.Key
	}
	return keys
}
