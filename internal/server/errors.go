package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"chatrelay/internal/core"
)

// handleError converts relay errors to JSON failure responses
func handleError(c echo.Context, err error) error {
	var relayErr *core.RelayError
	if !errors.As(err, &relayErr) {
		relayErr = core.NewInternalError(core.ErrorKindInternal, err)
	}

	status := relayErr.HTTPStatusCode()
	attrs := []any{
		"request_id", core.RequestIDFromContext(c.Request().Context()),
		"kind", relayErr.Kind,
		"status", status,
		"error", relayErr.Error(),
	}
	if status >= http.StatusInternalServerError {
		slog.Error("chat request failed", attrs...)
	} else {
		slog.Warn("chat request rejected", attrs...)
	}

	return c.JSON(status, relayErr.ToJSON())
}

// errorHandler is the echo HTTPErrorHandler. Every error that escapes a
// handler, panics included, is rendered as {success:false, error}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		_ = writeFailure(c, he.Code, msg) //nolint:errcheck
		return
	}

	_ = handleError(c, err) //nolint:errcheck
}

func writeFailure(c echo.Context, status int, msg string) error {
	if c.Request().Method == http.MethodHead {
		return c.NoContent(status)
	}
	return c.JSON(status, core.FailureResponse{Success: false, Error: msg})
}
