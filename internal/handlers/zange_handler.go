package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/zange-app/zange/backend/internal/models"
	"github.com/zange-app/zange/backend/internal/repositories"
)

// ZangeHandler creates posts.
type ZangeHandler struct {
	zangeRepository repositories.ZangeRepository
	userRepository  repositories.UserRepository
	logger          *zap.Logger
}

func NewZangeHandler(zangeRepo repositories.ZangeRepository, userRepo repositories.UserRepository, logger *zap.Logger) *ZangeHandler {
	return &ZangeHandler{
		zangeRepository: zangeRepo,
		userRepository:  userRepo,
		logger:          logger,
	}
}

func (h *ZangeHandler) RegisterZangeRoutes(g *echo.Group) {
	g.POST("/zanges", h.CreateZange)
}

// CreateZange stores a post. When ownerEmail is given the owner is upserted
// and the post is attributed to them; otherwise the session user owns it.
func (h *ZangeHandler) CreateZange(c echo.Context) error {
	var req models.CreateZangeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	var ownerID *uint
	switch {
	case strings.TrimSpace(req.OwnerEmail) != "":
		owner, err := h.userRepository.UpsertByEmail(req.OwnerEmail, strings.TrimSpace(req.OwnerNickname), strings.TrimSpace(req.AvatarURL))
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		ownerID = &owner.ID
	case getUserIDFromContext(c) != 0:
		id := getUserIDFromContext(c)
		ownerID = &id
	}

	targets := make(datatypes.JSONSlice[string], 0, len(req.Targets))
	for _, t := range req.Targets {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}

	z := &models.Zange{
		OwnerID:   ownerID,
		Text:      text,
		Targets:   targets,
		FutureTag: strings.TrimSpace(req.FutureTag),
		Scope:     req.Scope,
		Bg:        req.Bg,
	}
	if err := h.zangeRepository.CreateZange(z); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.logger.Debug("zange created", zap.Uint("zange_id", z.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"ok":        true,
		"id":        z.ID,
		"createdAt": z.CreatedAt,
		"ownerId":   z.OwnerID,
	})
}
