package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/platform/apperr"
)

// ErrorBody is the JSON shape of every error response. Detail is a string, or
// a list of field errors for validation failures.
type ErrorBody struct {
	Detail interface{} `json:"detail"`
}

// HTTPErrorHandler renders apperr, echo and unknown errors. Every 401 carries
// a Bearer challenge. A body over the BodyLimit is a 413 whatever wraps it.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Msg("request failed")
		}
		if status == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

func render(err error) (int, ErrorBody) {
	// An oversized body surfaces through the JSON decoder, usually wrapped
	// as a malformed body by the handler.
	if errors.Is(err, errBodyTooLarge) {
		return errBodyTooLarge.Code, ErrorBody{Detail: errBodyTooLarge.Message}
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		status := ae.Kind.Status()
		switch {
		case ae.Kind == apperr.KindValidation:
			fields := ae.Fields
			if fields == nil {
				fields = []apperr.FieldError{}
			}
			return status, ErrorBody{Detail: fields}
		case status >= http.StatusInternalServerError:
			return status, ErrorBody{Detail: "internal server error"}
		default:
			return status, ErrorBody{Detail: ae.Message}
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError &&
			he.Code != http.StatusServiceUnavailable && he.Code != http.StatusGatewayTimeout {
			return he.Code, ErrorBody{Detail: "internal server error"}
		}
		msg := he.Message
		if s, ok := msg.(string); ok {
			return he.Code, ErrorBody{Detail: s}
		}
		return he.Code, ErrorBody{Detail: fmt.Sprint(msg)}
	}

	return http.StatusInternalServerError, ErrorBody{Detail: "internal server error"}
}
