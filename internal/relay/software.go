package relay

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Software is an in-memory Relay used for tests and simulated deployments.
// It records its own state transitions and never touches hardware.
type Software struct {
	name   string
	logger *zap.Logger

	mu sync.Mutex
	on bool
}

// NewSoftware constructs a Software relay. Unknown Config.Extra keys are
// accepted and ignored, matching spec.md §4.A's "unknown keys are not an
// error" rule for test/simulation backends.
func NewSoftware(cfg Config, logger *zap.Logger) *Software {
	return &Software{name: cfg.Name, logger: logger}
}

func (s *Software) Name() string { return s.name }

func (s *Software) On(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.on {
		s.logger.Debug("relay on", zap.String("relay", s.name))
	}
	s.on = true
	return nil
}

func (s *Software) Off(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.on {
		s.logger.Debug("relay off", zap.String("relay", s.name))
	}
	s.on = false
	return nil
}

func (s *Software) IsOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

func (s *Software) IsOff() bool {
	return !s.IsOn()
}

func (s *Software) Shutdown(ctx context.Context) error {
	return s.Off(ctx)
}
