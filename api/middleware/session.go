package middleware

import (
	"errors"
	"net/http"

	pkgAuth "github.com/lojafacil/lojas-backend/pkg/auth"
	"github.com/lojafacil/lojas-backend/pkg/auth/session"
	"github.com/lojafacil/lojas-backend/pkg/config"
	"github.com/lojafacil/lojas-backend/pkg/logger"
)

// Session reads the session cookie and, when it maps to a live session record
// for the same user, seeds the request context. Anything else leaves the
// request anonymous.
func Session(cfg config.JWTConfig, checker session.Checker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cfg.CookieName)
			if err != nil || cookie.Value == "" || checker == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := pkgAuth.ParseSessionToken(cfg, cookie.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			userID, err := checker.Lookup(ctx, claims.ID)
			if err != nil {
				if !errors.Is(err, session.ErrNoSession) && logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "session.lookup.failed")
				}
				next.ServeHTTP(w, r)
				return
			}
			if userID != claims.UserID {
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithSession(ctx, userID, claims.ID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession redirects anonymous requests to loginPath.
func RequireSession(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); !ok {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
