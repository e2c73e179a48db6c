package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/zange-app/zange/backend/internal/models"
	"github.com/zange-app/zange/backend/internal/repositories"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, followRepo repositories.FollowRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo, followRepository: followRepo}
}

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	Nickname  string `json:"nickname" validate:"omitempty,max=50"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,max=500"`
}

// GetUser returns a user page header: the user, follow lists and whether the
// caller follows them.
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	user, err := h.userRepository.GetUserByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	followers, err := h.followRepository.GetFollowers(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	following, err := h.followRepository.GetFollowing(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	counts, err := h.followRepository.Counts(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	isFollowing := false
	if me := getUserIDFromContext(c); me != 0 && me != id {
		if isFollowing, err = h.followRepository.IsFollowing(me, id); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ok":          true,
		"user":        publicUser(user),
		"followers":   publicUsers(followers),
		"following":   publicUsers(following),
		"counts":      counts,
		"isFollowing": isFollowing,
	})
}

// UpdateProfile updates the signed-in user's nickname and avatar.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	var req UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(currentUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if nickname := strings.TrimSpace(req.Nickname); nickname != "" {
		user.Nickname = nickname
	}
	if avatar := strings.TrimSpace(req.AvatarURL); avatar != "" {
		user.AvatarURL = avatar
	}
	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "user": userView(user)})
}

// publicUser omits the email.
func publicUser(u *models.User) echo.Map {
	return echo.Map{"id": u.ID, "nickname": u.Nickname, "avatar_url": u.Avatar()}
}

func publicUsers(users []models.User) []echo.Map {
	out := make([]echo.Map, len(users))
	for i := range users {
		out[i] = publicUser(&users[i])
	}
	return out
}
