package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shouryamanekar/product-management-backend/internal/core/domain"
)

// errorResponse is the error envelope for every API failure. Error carries
// the underlying cause on 500s only.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain
// errors to their status code and renders {"message": ...}. Unexpected
// errors are logged and answered with 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err)
		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error) (int, errorResponse) {
	// Echo's own errors: unknown route, bad JSON body, body too large.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if inner, ok := he.Internal.(*domain.Error); ok {
			return resolveError(inner)
		}
		return he.Code, errorResponse{Message: fmt.Sprintf("%v", he.Message)}
	}

	var de *domain.Error
	if errors.As(err, &de) {
		code := de.Kind.HTTPStatus()
		if de.Kind == domain.KindInternal {
			return code, errorResponse{Message: de.Message, Error: causeOf(de)}
		}
		return code, errorResponse{Message: de.Message}
	}

	return http.StatusInternalServerError, errorResponse{Message: "Server error", Error: err.Error()}
}

func causeOf(de *domain.Error) string {
	if de.Err == nil {
		return ""
	}
	return de.Err.Error()
}
