package config

import (
	"fmt"
	"strings"
)

// MinJWTSecretLength guards against trivially guessable signing keys.
const MinJWTSecretLength = 16

// Validate checks the loaded configuration for values the node cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must be set")
	}
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must be set")
	}
	if c.BlockIntervalMs == 0 {
		return fmt.Errorf("BlockIntervalMs must be positive")
	}
	if c.RPCMaxConnections < 0 {
		return fmt.Errorf("RPCMaxConnections must not be negative")
	}
	if secret := strings.TrimSpace(c.Auth.JWTSecret); secret != "" && len(secret) < MinJWTSecretLength {
		return fmt.Errorf("auth: JWTSecret must be at least %d characters", MinJWTSecretLength)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit: RequestsPerSecond must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit: Burst must be positive when limiting is enabled")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0,1]")
	}
	return nil
}
