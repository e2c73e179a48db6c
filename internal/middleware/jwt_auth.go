package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/zange-app/zange/backend/internal/models"
)

const (
	// SessionCookieName carries the signed session token.
	SessionCookieName = "zange_session"
	// SessionTTL is how long a session cookie stays valid.
	SessionTTL = 30 * 24 * time.Hour
	// UserContextKey is where the session claims are stored on the echo context.
	UserContextKey = "user"
)

// IssueSessionToken signs claims for user.
func IssueSessionToken(secret string, user *models.User, now time.Time) (string, error) {
	claims := &models.SessionClaims{
		UserID: user.ID,
		Email:  user.EmailValue(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken validates tokenString and returns its claims.
func ParseSessionToken(secret, tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// sessionToken reads the session cookie, falling back to a Bearer header.
func sessionToken(c echo.Context) string {
	if ck, err := c.Cookie(SessionCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	parts := strings.Split(c.Request().Header.Get("Authorization"), " ")
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return ""
}

// JWTAuthMiddleware rejects requests without a valid session and stores the
// claims in the context.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := sessionToken(c)
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "login required")
			}
			claims, err := ParseSessionToken(secret, tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
			}
			c.Set(UserContextKey, claims)
			return next(c)
		}
	}
}

// OptionalJWTAuth stores the claims when a valid session is present and
// otherwise lets the request through untouched.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if tokenString := sessionToken(c); tokenString != "" {
				if claims, err := ParseSessionToken(secret, tokenString); err == nil {
					c.Set(UserContextKey, claims)
				}
			}
			return next(c)
		}
	}
}
