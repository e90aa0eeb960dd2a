package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shouryamanekar/product-management-backend/internal/core/domain"
)

// Context keys set by Auth.
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

// TokenVerifier resolves a bearer token to the caller's identity.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*domain.Identity, error)
}

type identityKey struct{}

// Auth rejects requests without a valid bearer token and makes the caller's
// identity available to handlers, both on the echo context and on the
// request context.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return domain.ErrMissingToken
			}

			req := c.Request()
			id, err := verifier.VerifyToken(req.Context(), token)
			if err != nil {
				return err
			}

			c.Set(ContextUserID, id.UserID)
			c.Set(ContextEmail, id.Email)
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), identityKey{}, id)))

			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by Auth, if any.
func IdentityFrom(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*domain.Identity)
	return id, ok && id != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
