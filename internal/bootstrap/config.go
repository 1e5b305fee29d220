package bootstrap

import (
	"fmt"

	"github.com/aqeluk/THYNKAPI/internal/config"
)

// validateConfiguration rejects configurations the service cannot start with
func validateConfiguration(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
