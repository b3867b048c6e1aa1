package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteAuthRequestCode = "/auth/request-code"
	RouteAuthVerifyCode  = "/auth/verify-code"
	RouteAuthRefresh     = "/auth/refresh"
	RouteAuthLogout      = "/auth/logout"
	RouteAuthUser        = "/auth/user"

	// Gift Routes
	RouteGifts       = "/gifts"
	RouteGift        = "/gifts/{id}"
	RouteGiftReserve = "/gifts/{id}/reservation"

	// Tag Routes
	RouteTags = "/tags"
	RouteTag  = "/tags/{id}"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteReady   = "/readyz"
	RouteMetrics = "/metrics"
)

// RefreshCookieName is the httpOnly cookie carrying the refresh token.
const RefreshCookieName = "refresh_token"
