package publisher

import (
	"github.com/okian/leaguemodel/pkg/logger"
)

// Option applies a configuration option to the Publisher.
type Option func(*Publisher)

// WithDualWrite keeps writing mirrors under the raw league key alongside the
// normalized one.
func WithDualWrite(enabled bool) Option {
	return func(p *Publisher) {
		p.dualWrite = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}
