package server

import (
	"net/http"

	"github.com/giftwish/giftwish/auth"
	"github.com/giftwish/giftwish/internal/obs"
	"github.com/pkg/errors"
)

type requestCodeRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// RequestCodeHandler mails a one-time login code. The response is the same
// whether or not anything was sent, so the endpoint cannot be used to probe
// for addresses.
func (s *Server) RequestCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req requestCodeRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if req.Email == "" {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email is required"})
			return
		}

		if err := s.services.Auth.RequestCode(r.Context(), req.Email); err != nil {
			s.logger.Warn().Err(err).Msg("login code delivery failed")
		}
		s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
	}
}

// VerifyCodeHandler exchanges a code for an access token in the body and a
// refresh token in an httpOnly cookie.
func (s *Server) VerifyCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyCodeRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if req.Email == "" || req.Code == "" {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and code are required"})
			return
		}

		pair, err := s.services.Auth.VerifyCode(r.Context(), req.Email, req.Code)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCode) {
				obs.CountLogin("invalid_code")
			} else if errors.Is(err, auth.ErrExpiredCode) {
				obs.CountLogin("expired_code")
			} else {
				obs.CountLogin("error")
			}
			s.writeError(w, r, err)
			return
		}

		obs.CountLogin("ok")
		s.setRefreshCookie(w, pair.RefreshToken)
		s.writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken})
	}
}

// RefreshHandler rotates the refresh cookie and returns a fresh access token.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := s.refreshTokenFromRequest(r)
		if raw == "" {
			obs.CountRefresh("unauthorized")
			s.writeError(w, r, auth.ErrUnauthorized)
			return
		}

		pair, err := s.services.Auth.Refresh(r.Context(), raw)
		if err != nil {
			obs.CountRefresh("unauthorized")
			s.clearRefreshCookie(w)
			s.writeError(w, r, err)
			return
		}

		obs.CountRefresh("ok")
		s.setRefreshCookie(w, pair.RefreshToken)
		s.writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken})
	}
}

// LogoutHandler revokes the caller's session. It always reports success:
// logging out without a valid token leaves the caller in the state they
// asked for.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := s.refreshTokenFromRequest(r); raw != "" {
			s.services.Auth.Logout(r.Context(), raw)
		}
		s.clearRefreshCookie(w)
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// CurrentUserHandler returns the identity snapshot from the access token.
func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			s.writeError(w, r, auth.ErrUnauthorized)
			return
		}
		user, err := s.services.Auth.CurrentUser(claims)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, user)
	}
}

// refreshTokenFromRequest prefers the cookie and falls back to a JSON body
// for clients that cannot send one (the cookie is scoped to the refresh
// path, so logout calls usually carry the token in the body).
func (s *Server) refreshTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(RefreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if r.Body != nil {
		_ = decodeBodyInto(r, &body)
	}
	return body.RefreshToken
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, value string) {
	sameSite := http.SameSiteLaxMode
	if s.config.IsProduction() {
		sameSite = http.SameSiteStrictMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     RouteAuthRefresh,
		MaxAge:   int(s.services.Auth.RefreshExpiry().Seconds()),
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: sameSite,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     RouteAuthRefresh,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
	})
}
