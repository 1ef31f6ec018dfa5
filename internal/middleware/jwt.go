package middleware // package middleware contains the request pipeline pieces shared by all routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/grading-api/internal/model"
)

// Resolver turns a raw bearer token into credentials.  The auth service
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, bearer string) (model.AuthCredentials, error)
}

// BearerAuth returns an Echo middleware that requires an
// "Authorization: Bearer <jwt>" header, resolves it against the store and
// puts the caller's credentials on the context.  Resolution happens on
// every request; nothing is cached between requests.
func BearerAuth(r Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, raw, found := strings.Cut(auth, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			cred, err := r.Resolve(c.Request().Context(), strings.TrimSpace(raw))
			if err != nil {
				// Resolve already logged store failures.
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			SetCredentials(c, cred)
			return next(c)
		}
	}
}
