package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/zange-app/zange/backend/internal/models"
	"github.com/zange-app/zange/backend/internal/repositories"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

// FeedHandler serves the public timeline
type FeedHandler struct {
	zangeRepository    repositories.ZangeRepository
	commentRepository  repositories.CommentRepository
	reactionRepository repositories.ReactionRepository
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(zangeRepo repositories.ZangeRepository, commentRepo repositories.CommentRepository, reactionRepo repositories.ReactionRepository) *FeedHandler {
	return &FeedHandler{
		zangeRepository:    zangeRepo,
		commentRepository:  commentRepo,
		reactionRepository: reactionRepo,
	}
}

// RegisterFeedRoutes registers feed routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

func feedLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return defaultFeedLimit
	}
	if limit > maxFeedLimit {
		return maxFeedLimit
	}
	return limit
}

// GetFeed returns public posts newest first with owner, comment count and
// per-type reaction counts.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	zanges, err := h.zangeRepository.ListPublic(feedLimit(c.QueryParam("limit")))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	ids := make([]uint, len(zanges))
	for i, z := range zanges {
		ids[i] = z.ID
	}
	commentCounts, err := h.commentRepository.CountByZangeIDs(ids)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	reactionCounts, err := h.reactionRepository.CountsByZangeIDs(ids)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	items := make([]models.FeedItem, len(zanges))
	for i, z := range zanges {
		// Stamps are left out; the feed carries only the built-in keys.
		counts := make(map[string]int64, len(models.BuiltinReactionTypes))
		for _, t := range models.BuiltinReactionTypes {
			counts[t] = reactionCounts[z.ID][t]
		}
		items[i] = models.FeedItem{
			ID:             z.ID,
			Text:           z.Text,
			Targets:        z.Targets,
			FutureTag:      z.FutureTag,
			Scope:          z.Scope,
			Bg:             z.Bg,
			CreatedAt:      z.CreatedAt,
			Owner:          feedOwner(z.Owner),
			CommentsCount:  commentCounts[z.ID],
			ReactionCounts: counts,
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true, "items": items})
}

func feedOwner(u *models.User) models.FeedOwner {
	if u == nil {
		return models.FeedOwner{Nickname: models.DefaultNickname, Avatar: models.DefaultAvatar}
	}
	id := u.ID
	return models.FeedOwner{ID: &id, Nickname: u.Nickname, Avatar: u.Avatar()}
}
