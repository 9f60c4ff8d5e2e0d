package config

import "time"

type SecurityConfig interface {
	GetAdminToken() string
	GetEnableRateLimiting() bool
	GetRateLimit() int64
	GetRateLimitWindow() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetAdminToken returns the bearer token gating the admin registry
// endpoints. Empty disables them entirely.
func (Security) GetAdminToken() string {
	return GetEnv(adminTokenVar, "")
}

func (Security) GetEnableRateLimiting() bool {
	return GetEnv("ENABLE_RATE_LIMITING", "true") == "true"
}

func (Security) GetRateLimit() int64 {
	return 60
}

func (Security) GetRateLimitWindow() time.Duration {
	return time.Minute
}
