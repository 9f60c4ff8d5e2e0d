package server

// Route constants for all server endpoints
const (
	RouteIndex = "/{$}"

	// OAuth 2.0 / OIDC endpoints
	RouteOAuthAuthorize = "/oauth/authorize"
	RouteOAuthCallback  = "/oauth/callback"
	RouteOAuthToken     = "/oauth/token"
	RouteOAuthUserInfo  = "/oauth/userinfo"

	// Discovery endpoints
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteWellKnownJWKS         = "/.well-known/jwks.json"

	// Admin endpoints (require the admin bearer token)
	RouteSetupInit             = "/setup/init"
	RouteAdminClientRegister   = "/admin/client/register"
	RouteAdminClientList       = "/admin/client/list"
	RouteAdminClientDelete     = "/admin/client/delete/{clientID}"
	RouteAdminProviderRegister = "/admin/provider/register"
)
