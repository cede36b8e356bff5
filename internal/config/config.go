// Package config defines process configuration and its loading hooks.
//
// Conventions:
//   - Defaults live in New; Load layers a YAML file and environment on top.
//   - External errors are wrapped with this package's sentinel kinds.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address used by serve, e.g. ":9080".
	Addr string `koanf:"addr"`

	// RemoteEnabled turns the object store tier on.
	RemoteEnabled bool `koanf:"remote_enabled"`

	// ObjectStoreURL names the bucket: s3://bucket?region=..., gs://bucket or
	// file:///path. Credentials come from the driver's environment.
	ObjectStoreURL string `koanf:"object_store_url"`

	// ObjectStorePrefix scopes every remote key, e.g. "leagues/".
	ObjectStorePrefix string `koanf:"object_store_prefix"`

	// ObjectStoreTimeoutMS bounds each object store round trip.
	ObjectStoreTimeoutMS int `koanf:"object_store_timeout_ms"`

	// PrimaryDir and SecondaryDir are the local artifact tiers, probed in that order.
	PrimaryDir   string `koanf:"primary_dir"`
	SecondaryDir string `koanf:"secondary_dir"`

	// CacheDir receives artifacts downloaded from the object store.
	CacheDir string `koanf:"cache_dir"`

	// StorePath is the SQLite document store file.
	StorePath string `koanf:"store_path"`

	// AuthoritativeModelType is forced onto every mirror record on publish.
	AuthoritativeModelType string `koanf:"authoritative_model_type"`

	// AccuracyTolerance is the largest accuracy delta (percentage points)
	// still treated as a match; the comparison is strict.
	AccuracyTolerance float64 `koanf:"accuracy_tolerance"`

	// Metrics controls metric naming; every metric is
	// {namespace}_{subsystem}_{name}.
	Metrics MetricsConfig `koanf:"metrics"`

	// DualWriteKeys keeps writing mirror records under the raw league key
	// in addition to the normalized one. Turn off once readers have migrated.
	DualWriteKeys bool `koanf:"dual_write_keys"`
}

// MetricsConfig shapes the Prometheus collectors.
type MetricsConfig struct {
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
	// ConstLabels are attached to every metric, e.g. {env: prod}.
	ConstLabels map[string]string `koanf:"const_labels"`
	// LatencyBucketsMS overrides the latency histogram buckets.
	LatencyBucketsMS []float64 `koanf:"latency_buckets_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		RemoteEnabled:          false,
		ObjectStoreTimeoutMS:   10_000,
		PrimaryDir:             "models",
		SecondaryDir:           "models/artifacts",
		CacheDir:               "",
		StorePath:              "leaguemodel.db",
		AuthoritativeModelType: "xgboost",
		AccuracyTolerance:      0.1,
		DualWriteKeys:          true,
		Metrics: MetricsConfig{
			Namespace: "leaguemodel",
			Subsystem: "registry",
		},
	}
}
