package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar      = "PORT"
	appNameVar      = "APP_NAME"
	issuerURLVar    = "ISSUER_URL"
	verifierURLVar  = "VERIFIER_URL"
	adminTokenVar   = "ADMIN_TOKEN"
	jwtPrivateVar   = "JWT_PRIVATE_KEY"
	redisAddrVar    = "REDIS_ADDR"
	redisPassVar    = "REDIS_PASSWORD"
	redisPrefixVar  = "REDIS_KEY_PREFIX"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "bbauth")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetIssuerURL returns the issuer identifier used in JWT "iss" claims and
// the discovery document.
func (EnvVars) GetIssuerURL() string {
	return GetEnv(issuerURLVar, "http://localhost:8080")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
