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

// ReactionHandler handles HTTP requests related to reactions
type ReactionHandler struct {
	reactionRepository repositories.ReactionRepository
	zangeRepository    repositories.ZangeRepository
	userRepository     repositories.UserRepository
	notifier           OwnerNotifier
}

// NewReactionHandler creates a new ReactionHandler
func NewReactionHandler(reactionRepo repositories.ReactionRepository, zangeRepo repositories.ZangeRepository, userRepo repositories.UserRepository, notifier OwnerNotifier) *ReactionHandler {
	return &ReactionHandler{
		reactionRepository: reactionRepo,
		zangeRepository:    zangeRepo,
		userRepository:     userRepo,
		notifier:           notifier,
	}
}

// RegisterReactionRoutes registers reaction-related routes
func (h *ReactionHandler) RegisterReactionRoutes(g *echo.Group) {
	g.POST("/reactions", h.React)
	g.GET("/zanges/:id/reactions", h.GetReactions)
}

// React applies toggle, add or remove for the identified actor and returns
// the fresh summary.
func (h *ReactionHandler) React(c echo.Context) error {
	var req models.ReactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	reactionType := strings.TrimSpace(req.Type)
	if reactionType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "type is required")
	}

	actor, err := resolveActor(c, h.userRepository, req.UserEmail, req.UserNickname)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	var actorID *uint
	if actor != nil {
		actorID = &actor.ID
	}

	res, err := h.reactionRepository.ApplyReaction(req.ZangeID, actorID, reactionType, req.Action)
	switch {
	case errors.Is(err, repositories.ErrZangeNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "zange not found")
	case errors.Is(err, repositories.ErrAnonymousRemove):
		return echo.NewHTTPError(http.StatusBadRequest, "remove requires an identified user")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if res.Added && actor != nil {
		if z, err := h.zangeRepository.GetZangeByID(req.ZangeID); err == nil {
			h.notifier.notify(z, actor, models.NotificationReaction, reactionMessage(actor, reactionType))
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ok":      true,
		"summary": models.SummarizeReactions(res.Counts),
		"my":      echo.Map{"reacted": res.Reacted},
	})
}

func (h *ReactionHandler) GetReactions(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.zangeRepository.GetZangeByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "zange not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	counts, err := h.reactionRepository.CountsByZange(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":      true,
		"summary": models.SummarizeReactions(counts),
		"counts":  counts,
	})
}
