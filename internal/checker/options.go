package checker

import (
	"github.com/okian/leaguemodel/pkg/logger"
)

// Option applies a configuration option to the Checker.
type Option func(*Checker)

// WithModelType sets the authoritative model type VerifyAll expects.
func WithModelType(modelType string) Option {
	return func(c *Checker) {
		if modelType != "" {
			c.modelType = modelType
		}
	}
}

// WithTolerance sets the accuracy tolerance in percentage points.
func WithTolerance(tolerance float64) Option {
	return func(c *Checker) {
		if tolerance > 0 {
			c.tolerance = tolerance
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}
