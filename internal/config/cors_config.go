package config

import "strings"

type Cors struct{}

var _ CorsConfig = Cors{}

// GetAllowedOrigins reads a comma-separated origin list. "*" is the
// default; the token endpoint is protected by PKCE, not by origin.
func (Cors) GetAllowedOrigins() []string {
	origins := GetEnv("CORS_ALLOWED_ORIGINS", "*")
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (Cors) GetAllowedMethods() []string {
	return []string{"GET", "POST", "DELETE", "OPTIONS"}
}

func (Cors) GetAllowedHeaders() []string {
	return []string{"Content-Type", "Authorization"}
}
