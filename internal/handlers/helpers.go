package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/zange-app/zange/backend/internal/middleware"
	"github.com/zange-app/zange/backend/internal/models"
	"github.com/zange-app/zange/backend/internal/repositories"
	"github.com/zange-app/zange/backend/pkg/normalize"
)

// getUserIDFromContext returns the session user id, or 0 when signed out.
func getUserIDFromContext(c echo.Context) uint {
	claims, ok := c.Get(middleware.UserContextKey).(*models.SessionClaims)
	if !ok || claims == nil {
		return 0
	}
	return claims.UserID
}

func parseIDParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

// bindAndValidate binds the body into req and runs the echo validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// userView is the public JSON form of a user.
func userView(u *models.User) echo.Map {
	if u == nil {
		return nil
	}
	return echo.Map{
		"id":         u.ID,
		"email":      u.EmailValue(),
		"nickname":   u.Nickname,
		"avatar_url": u.Avatar(),
		"createdAt":  u.CreatedAt,
	}
}

// resolveActor picks the acting user for an unauthenticated write: an
// explicit email, then the session, then a nickname held by exactly one user.
// A nil user means anonymous.
func resolveActor(c echo.Context, users repositories.UserRepository, email, nickname string) (*models.User, error) {
	if normalize.Email(email) != "" {
		return users.UpsertByEmail(email, "", "")
	}
	if id := getUserIDFromContext(c); id != 0 {
		u, err := users.GetUserByID(id)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return users.FindUniqueByNickname(strings.TrimSpace(nickname))
}
