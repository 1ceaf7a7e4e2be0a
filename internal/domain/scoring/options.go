package scoring

import (
	"time"

	"github.com/okian/podium/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMultiplier sets the power-pick multiplier.
func WithMultiplier(m int) Option {
	return func(e *Engine) {
		if m > 0 {
			e.multiplier = m
		}
	}
}

// WithClock sets the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocker shares a per-event locker with other components.
func WithLocker(l *KeyedLocker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
