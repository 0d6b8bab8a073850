package config

import (
	"fmt"
	"strings"

	"bondcurve/crypto"
)

// ValidateConfig rejects configurations the daemon cannot start with.
func ValidateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("config: nil config")
	}
	if c.ProtocolFeePermille > 1000 {
		return fmt.Errorf("ProtocolFeePermille must be at most 1000, got %d", c.ProtocolFeePermille)
	}
	if owner := strings.TrimSpace(c.Contract.Owner); owner != "" {
		if err := crypto.ValidateAddress(owner); err != nil {
			return fmt.Errorf("contract.Owner: %w", err)
		}
	}
	if addr := strings.TrimSpace(c.Contract.ContractAddress); addr != "" {
		if err := crypto.ValidateAddress(addr); err != nil {
			return fmt.Errorf("contract.ContractAddress: %w", err)
		}
	}
	if _, err := c.Contract.Curve.CurveType(); err != nil {
		return fmt.Errorf("contract.curve: %w", err)
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit.Burst must be positive")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.SampleRatio must be within [0,1], got %v", c.Telemetry.SampleRatio)
	}
	if (c.Telemetry.TracesEnabled || c.Telemetry.MetricsEnabled) && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry.Endpoint required when exporters are enabled")
	}
	return nil
}
