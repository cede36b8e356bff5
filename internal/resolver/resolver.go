// Package resolver locates a usable model artifact for a league across the
// remote object store and the local directory tiers.
//
// Candidates are checked one blocking round trip at a time in prober order.
// A remote hit is downloaded and returned immediately, so local tiers are
// never consulted once the object store answers. Remote failures downgrade to
// the local tiers instead of failing the call.
package resolver

import (
	"context"
	_ "crypto/sha256" // registers digest.Canonical
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"

	"github.com/okian/leaguemodel/internal/adapters/objectstore"
	"github.com/okian/leaguemodel/internal/domain/league"
	"github.com/okian/leaguemodel/internal/domain/probe"
	"github.com/okian/leaguemodel/pkg/logger"
	"github.com/okian/leaguemodel/pkg/metrics"
)

const defaultFlightTimeout = 2 * time.Minute

// Resolution describes where an artifact was found.
type Resolution struct {
	League    league.ID
	Path      string
	Candidate probe.Candidate
	// Digest and Size are set for artifacts downloaded from the remote tier.
	Digest digest.Digest
	Size   int64
}

// Remote reports whether the artifact came from the object store.
func (r Resolution) Remote() bool { return r.Candidate.Remote() }

// Resolver resolves league ids to local artifact paths.
type Resolver struct {
	prober        *probe.Prober
	remote        objectstore.Store
	cacheDir      string
	flightTimeout time.Duration
	logger        logger.Logger
	flights       singleflight.Group
}

// New creates a Resolver. Without WithRemote only local tiers are probed.
func New(prober *probe.Prober, opts ...Option) *Resolver {
	r := &Resolver{
		prober:        prober,
		cacheDir:      filepath.Join(os.TempDir(), "leaguemodel-cache"),
		flightTimeout: defaultFlightTimeout,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RemoteEnabled reports whether the object store tier is probed.
func (r *Resolver) RemoteEnabled() bool { return r.remote != nil }

// Candidates returns the probe list Resolve walks for id.
func (r *Resolver) Candidates(id league.ID) []probe.Candidate {
	return r.prober.Candidates(id, r.RemoteEnabled())
}

// Resolve returns a local path holding the artifact for id.
func (r *Resolver) Resolve(ctx context.Context, id league.ID) (string, error) {
	res, err := r.Locate(ctx, id)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

// Locate is Resolve with the full resolution details. Concurrent calls for
// the same league share one probe sequence and one download. The shared run
// is detached from every caller's cancellation and bounded by the flight
// timeout instead; each caller stops waiting when its own context ends.
func (r *Resolver) Locate(ctx context.Context, id league.ID) (Resolution, error) {
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}
	ch := r.flights.DoChan(id.String(), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.flightTimeout)
		defer cancel()
		return r.locate(fctx, id)
	})

	select {
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			r.logger.Debug(ctx, "joined in-flight resolution", logger.String("league", id.String()))
		}
		if res.Err != nil {
			return Resolution{}, res.Err
		}
		return res.Val.(Resolution), nil
	}
}

func (r *Resolver) locate(ctx context.Context, id league.ID) (Resolution, error) {
	start := time.Now()
	candidates := r.Candidates(id)

	var remoteErr error
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}

		if c.Remote() {
			if remoteErr != nil {
				continue
			}
			res, found, err := r.tryRemote(ctx, id, c)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return Resolution{}, ctxErr
				}
				remoteErr = err
				metrics.RecordRemoteFallback()
				r.logger.Warn(ctx, "remote tier unavailable; falling back to local tiers",
					logger.String("league", id.String()),
					logger.String("key", c.Key),
					logger.Error(err),
				)
				continue
			}
			if found {
				r.finish(ctx, res, start)
				return res, nil
			}
			continue
		}

		found, err := localExists(c.Key)
		metrics.RecordCandidateProbe(string(c.Tier), found)
		if err != nil {
			r.logger.Warn(ctx, "local candidate unreadable",
				logger.String("league", id.String()),
				logger.String("path", c.Key),
				logger.Error(err),
			)
			continue
		}
		if found {
			res := Resolution{League: id, Path: c.Key, Candidate: c}
			r.finish(ctx, res, start)
			return res, nil
		}
	}

	metrics.RecordResolution("none", "not_found", float64(time.Since(start).Milliseconds()))
	nf := &NotFoundError{League: id, Checked: candidates, RemoteErr: remoteErr}
	r.logger.Error(ctx, "no model artifact found",
		logger.String("league", id.String()),
		logger.Strings("checked", probe.Keys(candidates)),
	)
	return Resolution{}, nf
}

func (r *Resolver) finish(ctx context.Context, res Resolution, start time.Time) {
	metrics.RecordResolution(string(res.Candidate.Tier), "found", float64(time.Since(start).Milliseconds()))
	r.logger.Info(ctx, "resolved model artifact",
		logger.String("league", res.League.String()),
		logger.String("tier", string(res.Candidate.Tier)),
		logger.String("scheme", string(res.Candidate.Scheme)),
		logger.String("path", res.Path),
	)
}

// tryRemote checks one remote key and downloads it on a hit. A non-nil
// error means the remote tier should be abandoned for this call.
func (r *Resolver) tryRemote(ctx context.Context, id league.ID, c probe.Candidate) (Resolution, bool, error) {
	ok, err := r.remote.Exists(ctx, c.Key)
	if err != nil {
		return Resolution{}, false, &ConfigurationError{Op: "exists", Key: c.Key, Err: err}
	}
	metrics.RecordCandidateProbe(string(c.Tier), ok)
	if !ok {
		return Resolution{}, false, nil
	}

	res, err := r.download(ctx, id, c)
	if err != nil {
		if errors.Is(err, ErrCache) {
			return Resolution{}, false, err
		}
		return Resolution{}, false, &ConfigurationError{Op: "download", Key: c.Key, Err: err}
	}
	return res, true, nil
}

// download streams the object into a per-call temp file and renames it to
// a name derived from its digest, so concurrent or repeated downloads never
// expose a partially written artifact.
func (r *Resolver) download(ctx context.Context, id league.ID, c probe.Candidate) (Resolution, error) {
	rc, err := r.remote.Open(ctx, c.Key)
	if err != nil {
		return Resolution{}, err
	}
	defer func() { _ = rc.Close() }()

	dir := filepath.Join(r.cacheDir, "league_"+id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Resolution{}, fmt.Errorf("%w: %w", ErrCache, err)
	}
	tmp, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %w", ErrCache, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	digester := digest.Canonical.Digester()
	size, err := io.Copy(io.MultiWriter(tmp, digester.Hash()), rc)
	if err != nil {
		return Resolution{}, fmt.Errorf("copy %s: %w", c.Key, err)
	}
	if err := tmp.Sync(); err != nil {
		return Resolution{}, fmt.Errorf("%w: sync: %w", ErrCache, err)
	}
	if err := tmp.Close(); err != nil {
		return Resolution{}, fmt.Errorf("%w: close: %w", ErrCache, err)
	}

	dgst := digester.Digest()
	final := filepath.Join(dir, dgst.Encoded()+filepath.Ext(c.Key))
	if err := os.Rename(tmpName, final); err != nil {
		return Resolution{}, fmt.Errorf("%w: rename: %w", ErrCache, err)
	}
	committed = true
	metrics.RecordCacheWrite()

	return Resolution{League: id, Path: final, Candidate: c, Digest: dgst, Size: size}, nil
}

func localExists(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
