package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteIndex, s.IndexHandler())

	// OAuth2 / OIDC API routes
	s.RegisterRouteHandler("GET "+RouteOAuthAuthorize, ChainMiddleware(s.Authorize(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteOAuthCallback, ChainMiddleware(s.Callback(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOAuthToken, ChainMiddleware(s.Token(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteOAuthUserInfo, ChainMiddleware(s.UserInfo(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteWellKnownOpenIDConfig, ChainMiddleware(s.WellKnownOpenIDConfig(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKS(), s.APIMiddleware()...))

	// Admin routes (require the static admin bearer token)
	s.RegisterRouteHandler("POST "+RouteSetupInit, ChainMiddleware(s.SetupInit(), s.AdminMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAdminClientRegister, ChainMiddleware(s.ClientRegister(), s.AdminMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAdminClientList, ChainMiddleware(s.ClientList(), s.AdminMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteAdminClientDelete, ChainMiddleware(s.ClientDelete(), s.AdminMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAdminProviderRegister, ChainMiddleware(s.ProviderRegister(), s.AdminMiddleware()...))
}
