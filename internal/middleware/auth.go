package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/amruno/internal/domain"
)

const UserContextKey = "user"

// TokenVerifier resolves an access token to the mobile number it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserFinder loads the user a token belongs to.
type UserFinder interface {
	FindByMobile(ctx context.Context, mobile string) (*domain.User, error)
}

// Auth creates a middleware that protects routes that require a bearer token.
func Auth(tokens TokenVerifier, users UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scheme, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				return unauthorized(c)
			}

			mobile, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				FromContext(c.Request().Context()).Debug("Rejected access token", "error", err)
				return unauthorized(c)
			}

			user, err := users.FindByMobile(c.Request().Context(), mobile)
			if errors.Is(err, domain.ErrNotFound) {
				return unauthorized(c)
			}
			if err != nil {
				return err
			}

			c.Set(UserContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c echo.Context) (*domain.User, error) {
	user, ok := c.Get(UserContextKey).(*domain.User)
	if !ok || user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
	}
	return user, nil
}

func unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, "Could not validate credentials")
}
