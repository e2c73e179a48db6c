package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zange-app/zange/backend/internal/models"
	"github.com/zange-app/zange/backend/internal/repositories"
	"github.com/zange-app/zange/backend/pkg/stamps"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository, userRepo repositories.UserRepository) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		userRepository:         userRepo,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
}

// NotificationView is a notification with its actor's display name.
type NotificationView struct {
	models.Notification
	ActorNickname string `json:"actor_nickname"`
	URL           string `json:"url"`
}

// GetNotifications returns paginated notifications
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	notifications, total, err := h.notificationRepository.GetByRecipientID(currentUserID, page, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	unread, err := h.notificationRepository.GetUnreadCount(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	names := make(map[uint]string)
	items := make([]NotificationView, len(notifications))
	for i, n := range notifications {
		items[i] = NotificationView{Notification: n, URL: n.Link()}
		name, ok := names[n.ActorID]
		if !ok {
			name = models.DefaultNickname
			if actor, err := h.userRepository.GetUserByID(n.ActorID); err == nil {
				name = actor.Nickname
			}
			names[n.ActorID] = name
		}
		items[i].ActorNickname = name
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ok":     true,
		"items":  items,
		"total":  total,
		"unread": unread,
		"page":   page,
		"limit":  limit,
	})
}

// GetUnreadCount is recomputed on every call.
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	count, err := h.notificationRepository.GetUnreadCount(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "count": count})
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.notificationRepository.MarkAsRead(currentUserID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "notification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	if err := h.notificationRepository.MarkAllAsRead(currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// OwnerNotifier records a notification for a post owner when someone else
// acts on the post.
type OwnerNotifier struct {
	notificationRepository repositories.NotificationRepository
	logger                 *zap.Logger
}

func NewOwnerNotifier(notifRepo repositories.NotificationRepository, logger *zap.Logger) OwnerNotifier {
	return OwnerNotifier{notificationRepository: notifRepo, logger: logger}
}

func (n OwnerNotifier) notify(z *models.Zange, actor *models.User, kind, message string) {
	if n.notificationRepository == nil || z == nil || z.OwnerID == nil || actor == nil || actor.ID == *z.OwnerID {
		return
	}
	zangeID := z.ID
	notif := &models.Notification{
		Type:        kind,
		ActorID:     actor.ID,
		RecipientID: *z.OwnerID,
		ZangeID:     &zangeID,
		Message:     message,
	}
	// A failed notification never fails the write that caused it.
	if err := n.notificationRepository.CreateNotification(notif); err != nil {
		n.logger.Warn("failed to create notification",
			zap.String("type", kind), zap.Uint("zange_id", z.ID), zap.Error(err))
	}
}

func reactionMessage(actor *models.User, reactionType string) string {
	return stamps.ReactionNotice(actor.Nickname, reactionType)
}

func commentMessage(actor *models.User) string {
	return fmt.Sprintf("%s さんがあなたの投稿にコメントしました", actor.Nickname)
}

func followMessage(actor *models.User) string {
	return fmt.Sprintf("%s さんがあなたをフォローしました", actor.Nickname)
}
