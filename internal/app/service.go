// Package service wires configuration into the resolver, publisher and
// checker and exposes the operations the CLI and HTTP API run.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/okian/leaguemodel/internal/adapters/docstore"
	"github.com/okian/leaguemodel/internal/adapters/objectstore"
	"github.com/okian/leaguemodel/internal/adapters/repository"
	"github.com/okian/leaguemodel/internal/checker"
	"github.com/okian/leaguemodel/internal/config"
	"github.com/okian/leaguemodel/internal/domain/league"
	"github.com/okian/leaguemodel/internal/domain/probe"
	"github.com/okian/leaguemodel/internal/domain/registry"
	"github.com/okian/leaguemodel/internal/publisher"
	"github.com/okian/leaguemodel/internal/resolver"
	"github.com/okian/leaguemodel/pkg/logger"
)

// Service owns the components of one process.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Injected or built on Start
	docs    docstore.Store
	objects objectstore.Store
	closer  func() error

	// bucketCloser releases a bucket opened from config.
	bucketCloser func() error

	// Core components
	resolver  *resolver.Resolver
	publisher *publisher.Publisher
	checker   *checker.Checker
	repo      repository.Store

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDocStore uses docs instead of opening the configured SQLite file.
func WithDocStore(docs docstore.Store) Option {
	return func(s *Service) {
		s.docs = docs
	}
}

// WithObjectStore uses objects as the remote tier instead of the configured
// bucket. It takes effect only when the remote tier is enabled.
func WithObjectStore(objects objectstore.Store) Option {
	return func(s *Service) {
		s.objects = objects
	}
}

// New constructs a Service. A nil cfg uses defaults.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components. The remote tier is dropped with a warning
// when it is enabled but cannot be configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.docs == nil {
		store, err := docstore.OpenSQLite(s.cfg.StorePath)
		if err != nil {
			return fmt.Errorf("open document store: %w", err)
		}
		s.docs = store
		s.closer = store.Close
		s.logger.Info(ctx, "using sqlite document store", logger.String("path", s.cfg.StorePath))
	}

	resolverOpts := []resolver.Option{
		resolver.WithCacheDir(s.cfg.CacheDir),
		resolver.WithLogger(s.logger.Named("resolver")),
	}
	if remote := s.remoteStore(ctx); remote != nil {
		resolverOpts = append(resolverOpts, resolver.WithRemote(remote))
	}

	s.repo = repository.New(s.docs)
	s.resolver = resolver.New(probe.New(s.cfg.PrimaryDir, s.cfg.SecondaryDir), resolverOpts...)
	s.publisher = publisher.New(s.repo,
		publisher.WithDualWrite(s.cfg.DualWriteKeys),
		publisher.WithLogger(s.logger.Named("publisher")),
	)
	s.checker = checker.New(s.repo,
		checker.WithModelType(s.cfg.AuthoritativeModelType),
		checker.WithTolerance(s.cfg.AccuracyTolerance),
		checker.WithLogger(s.logger.Named("checker")),
	)

	s.started = true
	s.logger.Info(ctx, "leaguemodel service started",
		logger.Bool("remote_enabled", s.resolver.RemoteEnabled()),
		logger.String("primary_dir", s.cfg.PrimaryDir),
		logger.String("secondary_dir", s.cfg.SecondaryDir),
		logger.Bool("dual_write_keys", s.cfg.DualWriteKeys),
	)
	return nil
}

func (s *Service) remoteStore(ctx context.Context) objectstore.Store {
	if !s.cfg.RemoteEnabled {
		return nil
	}
	if s.objects != nil {
		return s.objects
	}
	store, err := objectstore.OpenBucket(ctx, s.cfg.ObjectStoreURL,
		objectstore.WithPrefix(s.cfg.ObjectStorePrefix),
		objectstore.WithTimeout(time.Duration(s.cfg.ObjectStoreTimeoutMS)*time.Millisecond),
	)
	if err != nil {
		cerr := &resolver.ConfigurationError{Op: "configure object store", Err: err}
		s.logger.Warn(ctx, "remote tier disabled; resolving from local tiers only", logger.Error(cerr))
		return nil
	}
	s.bucketCloser = store.Close
	return store
}

// Stop releases the document store and bucket if Start opened them.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.closer != nil {
		if err := s.closer(); err != nil {
			s.logger.Warn(context.Background(), "closing document store", logger.Error(err))
		}
		s.closer = nil
		s.docs = nil
	}
	if s.bucketCloser != nil {
		if err := s.bucketCloser(); err != nil {
			s.logger.Warn(context.Background(), "closing object store", logger.Error(err))
		}
		s.bucketCloser = nil
	}
	s.started = false
	s.logger.Info(context.Background(), "leaguemodel service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Status describes the running configuration.
type Status struct {
	Started       bool   `json:"started"`
	RemoteEnabled bool   `json:"remote_enabled"`
	ModelType     string `json:"authoritative_model_type"`
	DualWriteKeys bool   `json:"dual_write_keys"`
}

// Status reports the running configuration.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Started:       s.started,
		ModelType:     s.cfg.AuthoritativeModelType,
		DualWriteKeys: s.cfg.DualWriteKeys,
	}
	if s.started {
		st.RemoteEnabled = s.resolver.RemoteEnabled()
	}
	return st
}

// Candidates returns the probe list for a raw league id.
func (s *Service) Candidates(raw string) (league.ID, []probe.Candidate, error) {
	if err := s.ready(); err != nil {
		return league.ID{}, nil, err
	}
	id, err := league.Parse(raw)
	if err != nil {
		return league.ID{}, nil, err
	}
	return id, s.resolver.Candidates(id), nil
}

// Resolve locates the artifact of a raw league id.
func (s *Service) Resolve(ctx context.Context, raw string) (resolver.Resolution, error) {
	if err := s.ready(); err != nil {
		return resolver.Resolution{}, err
	}
	id, err := league.Parse(raw)
	if err != nil {
		return resolver.Resolution{}, err
	}
	return s.resolver.Locate(ctx, id)
}

// LoadRegistry reads a registry document from path, or the stored canonical
// document when path is empty.
func (s *Service) LoadRegistry(ctx context.Context, path string) (*registry.Registry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if path == "" {
		reg, err := s.repo.Canonical(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: no file given and nothing published: %w", ErrNoSource, err)
		}
		return reg, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer f.Close()
	return registry.Decode(f)
}

// Publish publishes the registry at path, or republishes the stored
// canonical document when path is empty.
func (s *Service) Publish(ctx context.Context, path string) (publisher.Summary, error) {
	reg, err := s.LoadRegistry(ctx, path)
	if err != nil {
		return publisher.Summary{}, err
	}
	return s.publisher.Publish(ctx, reg, s.cfg.AuthoritativeModelType)
}

// Verify checks the mirrors of a raw league id.
func (s *Service) Verify(ctx context.Context, raw string) (checker.Verification, error) {
	if err := s.ready(); err != nil {
		return checker.Verification{}, err
	}
	id, err := league.Parse(raw)
	if err != nil {
		return checker.Verification{}, err
	}
	return s.checker.Verify(ctx, id)
}

// VerifyAll sweeps every stored mirror.
func (s *Service) VerifyAll(ctx context.Context) ([]checker.Finding, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.checker.VerifyAll(ctx)
}
