package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/masterhub/internal/utils"
)

// JWTMiddleware verifies the bearer token and stores user_id and role on the
// context. Browsers cannot set headers on a websocket handshake, so a
// ?token= query parameter is accepted as well.
func JWTMiddleware(tokens *utils.TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
				const prefix = "Bearer "
				if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid Authorization format"})
				}
				raw = h[len(prefix):]
			} else {
				raw = c.QueryParam("token")
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing Authorization header"})
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}
