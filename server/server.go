package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/giftwish/giftwish/auth"
	"github.com/giftwish/giftwish/gifts"
	"github.com/giftwish/giftwish/internal/config"
	"github.com/giftwish/giftwish/internal/obs"
	"github.com/giftwish/giftwish/permissions"
	"github.com/giftwish/giftwish/tags"
)

// Services bundles the domain services the server exposes.
type Services struct {
	Auth  *auth.Service
	Gifts *gifts.Service
	Tags  *tags.Service
}

type Server struct {
	env      string // Environment (e.g., "development", "production")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	services Services
	logger   zerolog.Logger
	// dbPing is nil when the service runs on in-memory repos.
	dbPing func(ctx context.Context) error
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithDBPing wires a database connectivity check into the health endpoint.
func WithDBPing(ping func(ctx context.Context) error) ServerOption {
	return func(s *Server) {
		s.dbPing = ping
	}
}

// New builds the HTTP server over the domain services.
func New(cfg config.Config, services Services, logger zerolog.Logger, options ...ServerOption) (*Server, error) {
	if services.Auth == nil {
		return nil, errors.New("[Server New] auth service is required")
	}
	if services.Gifts == nil {
		return nil, errors.New("[Server New] gifts service is required")
	}
	if services.Tags == nil {
		return nil, errors.New("[Server New] tags service is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		services: services,
		logger:   logger,
	}
	for _, option := range options {
		option(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("POST "+RouteAuthRequestCode,
		s.route(RouteAuthRequestCode, s.RequestCodeHandler(), s.RateLimitMiddleware))
	s.RegisterRouteHandler("POST "+RouteAuthVerifyCode,
		s.route(RouteAuthVerifyCode, s.VerifyCodeHandler(), s.RateLimitMiddleware))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh,
		s.route(RouteAuthRefresh, s.RefreshHandler()))
	s.RegisterRouteHandler("POST "+RouteAuthLogout,
		s.route(RouteAuthLogout, s.LogoutHandler()))
	s.RegisterRouteHandler("GET "+RouteAuthUser,
		s.route(RouteAuthUser, s.CurrentUserHandler(), s.RequireAuth()))

	s.RegisterRouteHandler("GET "+RouteGifts,
		s.route(RouteGifts, s.ListGiftsHandler(), s.OptionalAuth))
	s.RegisterRouteHandler("GET "+RouteGift,
		s.route(RouteGift, s.GetGiftHandler(), s.OptionalAuth))
	s.RegisterRouteHandler("POST "+RouteGifts,
		s.route(RouteGifts, s.CreateGiftHandler(), s.RequireAuth(permissions.Permission{
			Resource: permissions.ResourceGift, Scopes: []permissions.Scope{permissions.ScopeCreate},
		})))
	s.RegisterRouteHandler("PATCH "+RouteGift,
		s.route(RouteGift, s.UpdateGiftHandler(), s.RequireAuth(permissions.Permission{
			Resource: permissions.ResourceGift, Scopes: []permissions.Scope{permissions.ScopeEdit},
		})))
	s.RegisterRouteHandler("DELETE "+RouteGift,
		s.route(RouteGift, s.DeleteGiftHandler(), s.RequireAuth(permissions.Permission{
			Resource: permissions.ResourceGift, Scopes: []permissions.Scope{permissions.ScopeDelete},
		})))

	s.RegisterRouteHandler("POST "+RouteGiftReserve,
		s.route(RouteGiftReserve, s.ReserveGiftHandler(), s.RequireAuth()))
	s.RegisterRouteHandler("DELETE "+RouteGiftReserve,
		s.route(RouteGiftReserve, s.UnreserveGiftHandler(), s.RequireAuth()))

	s.RegisterRouteHandler("GET "+RouteTags,
		s.route(RouteTags, s.ListTagsHandler()))
	s.RegisterRouteHandler("POST "+RouteTags,
		s.route(RouteTags, s.CreateTagHandler(), s.RequireAuth(permissions.Permission{
			Resource: permissions.ResourceTag, Scopes: []permissions.Scope{permissions.ScopeCreate},
		})))
	s.RegisterRouteHandler("PATCH "+RouteTag,
		s.route(RouteTag, s.UpdateTagHandler(), s.RequireAuth(permissions.Permission{
			Resource: permissions.ResourceTag, Scopes: []permissions.Scope{permissions.ScopeEdit},
		})))
	s.RegisterRouteHandler("DELETE "+RouteTag,
		s.route(RouteTag, s.DeleteTagHandler(), s.RequireAuth(permissions.Permission{
			Resource: permissions.ResourceTag, Scopes: []permissions.Scope{permissions.ScopeDelete},
		})))

	s.RegisterRouteHandler("GET "+RouteHealth, s.route(RouteHealth, s.HealthHandler()))
	s.RegisterRouteHandler("GET "+RouteReady, s.route(RouteReady, s.ReadyHandler()))
	s.routes = append(s.routes, "GET "+RouteMetrics)
	s.mux.Handle("GET "+RouteMetrics, obs.Handler())
}

// route wraps a handler with the standard API middleware plus any
// route-specific ones, and instruments it under its pattern.
func (s *Server) route(pattern string, handler http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chained := ChainMiddleware(handler, append(s.APIMiddleware(), mw...)...)
	instrumented := obs.Instrument(pattern, chained)
	return instrumented.ServeHTTP
}

func (s *Server) logRoutes() {
	if s.env == "production" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logger.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			s.logger.Info().Str("path", parts[0]).Msg("route")
		}
	}
}
