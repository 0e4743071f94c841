package relay

import (
	"fmt"

	"go.uber.org/zap"
)

// New constructs a Relay of the given backend type ("software" or "gpio").
// Unknown types return a plain, unclassified error here; the classified
// config error for them comes from internal/configstore's Validate, which
// runs before any relay is built.
func New(backend string, cfg Config, logger *zap.Logger) (Relay, error) {
	switch backend {
	case "software", "":
		return NewSoftware(cfg, logger), nil
	case "gpio":
		return NewGPIO(cfg, logger)
	default:
		return nil, fmt.Errorf("relay: unknown backend %q", backend)
	}
}
