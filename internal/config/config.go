package config

// Config aggregates the service configuration surfaces. Handlers and
// services accept the narrowest interface they need.
type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetIssuerURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() []string
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Storage
}

func New() Config {
	return mainConfig{}
}
