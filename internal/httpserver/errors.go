package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/accounts/internal/logging"
	"github.com/Skotchmaster/accounts/internal/service"
	"github.com/Skotchmaster/accounts/internal/transport"
)

const msgInternal = "Internal server error"

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNotRegistered),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// toHTTPError maps a service failure onto a status code and its messages.
func toHTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	code := statusFor(err)
	if msgs := service.Messages(err); len(msgs) > 0 && code < http.StatusInternalServerError {
		return echo.NewHTTPError(code, msgs).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, msgInternal).SetInternal(err)
}

// ErrorHandler renders every error as {"errors":[{"msg":...}]}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he := toHTTPError(err)

	var msgs []string
	switch m := he.Message.(type) {
	case []string:
		msgs = m
	case string:
		msgs = []string{m}
	default:
		msgs = []string{http.StatusText(he.Code)}
	}
	if he.Code == http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "status", he.Code, "error", err)
		msgs = []string{msgInternal}
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(he.Code)
	} else {
		werr = c.JSON(he.Code, transport.NewErrorResponse(msgs...))
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", werr)
	}
}
