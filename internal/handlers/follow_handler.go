package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zange-app/zange/backend/internal/models"
	"github.com/zange-app/zange/backend/internal/repositories"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository       repositories.FollowRepository
	userRepository         repositories.UserRepository
	notificationRepository repositories.NotificationRepository
	logger                 *zap.Logger
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository, notifRepo repositories.NotificationRepository, logger *zap.Logger) *FollowHandler {
	return &FollowHandler{
		followRepository:       followRepo,
		userRepository:         userRepo,
		notificationRepository: notifRepo,
		logger:                 logger,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
}

// target resolves the :id user, rejecting self-follow.
func (h *FollowHandler) target(c echo.Context) (uint, *models.User, error) {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return 0, nil, echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return 0, nil, err
	}
	if currentUserID == targetID {
		return 0, nil, echo.NewHTTPError(http.StatusBadRequest, "cannot follow yourself")
	}
	target, err := h.userRepository.GetUserByID(targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil, echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return 0, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return currentUserID, target, nil
}

// FollowUser follows a user. Following twice is a no-op.
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID, target, err := h.target(c)
	if err != nil {
		return err
	}

	created, err := h.followRepository.CreateFollow(currentUserID, target.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if created && h.notificationRepository != nil {
		if actor, err := h.userRepository.GetUserByID(currentUserID); err == nil {
			notif := &models.Notification{
				Type:        models.NotificationFollow,
				ActorID:     currentUserID,
				RecipientID: target.ID,
				Message:     followMessage(actor),
			}
			if err := h.notificationRepository.CreateNotification(notif); err != nil {
				h.logger.Warn("failed to create follow notification", zap.Error(err))
			}
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "following": true})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID, target, err := h.target(c)
	if err != nil {
		return err
	}
	if _, err := h.followRepository.DeleteFollow(currentUserID, target.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "following": false})
}
