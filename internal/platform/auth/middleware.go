package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/platform/apperr"
	"github.com/ehr/records/internal/platform/db"
)

const msgInvalidToken = "Could not validate credentials"

// Loader resolves a verified token subject to the principal entity. It returns
// db.ErrNotFound when the entity no longer exists.
type Loader[T any] func(ctx context.Context, id uuid.UUID) (T, error)

// Require authenticates the request's bearer token as a principal of kind and
// stores the loaded entity on the echo context. Every rejection, including a
// subject that no longer resolves, yields the same 401.
func Require[T any](tokens *TokenService, kind Kind, load Loader[T]) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			log := zerolog.Ctx(ctx)

			tokenStr, err := bearerToken(c.Request())
			if err != nil {
				log.Debug().Err(err).Str("kind", kind.String()).Msg("authentication failed")
				return unauthorized()
			}

			id, err := tokens.Verify(tokenStr, kind)
			if err != nil {
				log.Debug().Err(err).Str("kind", kind.String()).Msg("authentication failed")
				return unauthorized()
			}

			principal, err := load(ctx, id)
			if errors.Is(err, db.ErrNotFound) {
				log.Debug().Str("kind", kind.String()).Str("subject", id.String()).Msg("authentication failed: principal no longer exists")
				return unauthorized()
			}
			if err != nil {
				return fmt.Errorf("load %s principal: %w", kind, err)
			}

			SetPrincipal(c, kind, principal)
			return next(c)
		}
	}
}

// Principal returns the principal of kind stored by Require.
func Principal[T any](c echo.Context, kind Kind) (T, bool) {
	p, ok := c.Get(principalKey(kind)).(T)
	return p, ok
}

// SetPrincipal stores p as the principal of kind on c.
func SetPrincipal(c echo.Context, kind Kind, p any) {
	c.Set(principalKey(kind), p)
}

func principalKey(kind Kind) string {
	return "principal_" + string(kind)
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

func unauthorized() error {
	return apperr.Unauthenticated(msgInvalidToken)
}
