package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"github.com/zange-app/zange/backend/internal/models"
)

// FirebaseTokenKey is where the verified Firebase token is stored.
const FirebaseTokenKey = "firebaseToken"

// IDTokenVerifier is the part of *auth.Client used for login.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthMiddleware verifies a Firebase ID token taken from a Bearer
// header or from the JSON body field "idToken".
func FirebaseAuthMiddleware(verifier IDTokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var idToken string
			tokenParts := strings.Split(c.Request().Header.Get("Authorization"), " ")
			if len(tokenParts) == 2 && strings.ToLower(tokenParts[0]) == "bearer" {
				idToken = tokenParts[1]
			} else {
				var req models.FirebaseLoginRequest
				if err := c.Bind(&req); err != nil {
					return echo.NewHTTPError(http.StatusBadRequest, "invalid request payload")
				}
				idToken = strings.TrimSpace(req.IDToken)
			}
			if idToken == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "idToken required")
			}

			token, err := verifier.VerifyIDToken(c.Request().Context(), idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired ID token")
			}

			c.Set(FirebaseTokenKey, token)
			return next(c)
		}
	}
}
