package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/grading-api/internal/repository"
)

// validationBody is rendered for 400s raised by request validation.
type validationBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func errValidation(fields map[string]string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, validationBody{Error: "validation failed", Fields: fields})
}

func errBadRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

func errUnauthenticated() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
}

func errForbidden() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusForbidden, "forbidden")
}

func errNotFound(what string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, what+" not found")
}

func errConflict(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusConflict, msg)
}

// errInternal hides cause from the client.  ErrorHandler logs it.
func errInternal(cause error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(cause)
}

// storeError maps repository sentinels onto the HTTP taxonomy.  what names
// the resource in 404 messages.
func storeError(err error, what string) *echo.HTTPError {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errNotFound(what)
	case errors.Is(err, repository.ErrConflict):
		return errConflict(what + " already exists")
	case errors.Is(err, repository.ErrForbidden):
		return errForbidden()
	}
	return errInternal(err)
}

// ErrorHandler renders every error as {"error": "..."} and logs the cause
// of 5xx responses.  Install it as echo.Echo.HTTPErrorHandler.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if !errors.As(err, &he) {
			he = errInternal(err)
		}

		if he.Code >= http.StatusInternalServerError {
			cause := he.Internal
			if cause == nil {
				cause = err
			}
			log.ErrorContext(c.Request().Context(), "request failed",
				slog.String("method", c.Request().Method),
				slog.String("route", c.Path()),
				slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				slog.Any("err", cause))
		}

		var body any
		switch m := he.Message.(type) {
		case validationBody:
			body = m
		case string:
			body = echo.Map{"error": m}
		default:
			body = echo.Map{"error": http.StatusText(he.Code)}
		}
		if he.Code >= http.StatusInternalServerError {
			body = echo.Map{"error": "internal server error"}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, body)
		}
		if err != nil {
			log.Error("write error response", slog.Any("err", err))
		}
	}
}
