package resolver

import (
	"time"

	"github.com/okian/leaguemodel/internal/adapters/objectstore"
	"github.com/okian/leaguemodel/pkg/logger"
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithRemote enables the object store tier.
func WithRemote(store objectstore.Store) Option {
	return func(r *Resolver) {
		r.remote = store
	}
}

// WithCacheDir sets where remote downloads are materialized.
func WithCacheDir(dir string) Option {
	return func(r *Resolver) {
		if dir != "" {
			r.cacheDir = dir
		}
	}
}

// WithFlightTimeout bounds one shared resolution, download included.
func WithFlightTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.flightTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}
