package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Status is the liveness endpoint used by load balancers and monitors.
func Status(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"up": true})
}
