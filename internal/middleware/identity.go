package middleware

// identity.go holds the helpers shared by the middleware and the handlers
// for reading the resolved caller and numeric path parameters.

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/grading-api/internal/model"
)

const credentialsKey = "credentials"

// SetCredentials stores the resolved caller on the request context.
func SetCredentials(c echo.Context, cred model.AuthCredentials) {
	c.Set(credentialsKey, cred)
}

// Credentials returns the caller resolved by BearerAuth.  ok is false on
// routes that are not behind BearerAuth.
func Credentials(c echo.Context) (model.AuthCredentials, bool) {
	cred, ok := c.Get(credentialsKey).(model.AuthCredentials)
	return cred, ok
}

// PathID parses a positive integer path parameter.  Anything else is a
// 400 naming the parameter.
func PathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// userID returns the caller's id for rate limit keys, "anon" when the
// request is not authenticated.
func userID(c echo.Context) string {
	if cred, ok := Credentials(c); ok {
		return strconv.FormatUint(cred.UserID, 10)
	}
	return "anon"
}
