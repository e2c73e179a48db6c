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

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	zangeRepository   repositories.ZangeRepository
	userRepository    repositories.UserRepository
	notifier          OwnerNotifier
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, zangeRepo repositories.ZangeRepository, userRepo repositories.UserRepository, notifier OwnerNotifier) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		zangeRepository:   zangeRepo,
		userRepository:    userRepo,
		notifier:          notifier,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/zanges/:id/comments", h.CreateComment)
	g.GET("/zanges/:id/comments", h.GetComments)
}

func (h *CommentHandler) loadZange(c echo.Context) (*models.Zange, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	z, err := h.zangeRepository.GetZangeByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "zange not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return z, nil
}

// CreateComment appends a comment of at most 32 characters.
func (h *CommentHandler) CreateComment(c echo.Context) error {
	z, err := h.loadZange(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	actor, err := resolveActor(c, h.userRepository, req.UserEmail, "")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	comment := &models.Comment{
		ZangeID: z.ID,
		Name:    strings.TrimSpace(req.Name),
		Text:    text,
	}
	if actor != nil {
		comment.UserID = &actor.ID
		if comment.Name == "" {
			comment.Name = actor.Nickname
		}
	}
	if comment.Name == "" {
		comment.Name = models.DefaultNickname
	}

	if err := h.commentRepository.CreateComment(comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if actor != nil {
		h.notifier.notify(z, actor, models.NotificationComment, commentMessage(actor))
	}

	return c.JSON(http.StatusCreated, echo.Map{"ok": true, "comment": comment})
}

// GetComments lists comments oldest first.
func (h *CommentHandler) GetComments(c echo.Context) error {
	z, err := h.loadZange(c)
	if err != nil {
		return err
	}
	comments, err := h.commentRepository.GetCommentsByZangeID(z.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "items": comments})
}
