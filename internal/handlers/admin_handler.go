package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/zange-app/zange/backend/internal/repositories"
)

var errDatabaseNotConfigured = errors.New("DATABASE_URL is not set")

// AdminHandler exposes maintenance operations guarded by SECRET_KEY.
type AdminHandler struct {
	adminRepository repositories.AdminRepository
	secretKey       string
	logger          *zap.Logger
}

func NewAdminHandler(adminRepo repositories.AdminRepository, secretKey string, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminRepository: adminRepo,
		secretKey:       secretKey,
		logger:          logger,
	}
}

func (h *AdminHandler) RegisterAdminRoutes(g *echo.Group) {
	g.Use(h.RequireAdminKey)
	g.GET("/dbping", h.DBPing)
	g.POST("/migrate", h.Migrate)
	g.GET("/dbcheck", h.DBCheck)
	g.POST("/seed", h.Seed)
}

// RequireAdminKey compares the x-admin-key header (or ?key=) with the
// configured secret. An empty secret disables every admin route.
func (h *AdminHandler) RequireAdminKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get("x-admin-key")
		if key == "" {
			key = c.QueryParam("key")
		}
		if h.secretKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.secretKey)) != 1 {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return next(c)
	}
}

func (h *AdminHandler) failed(c echo.Context, op string, err error) error {
	h.logger.Error("admin operation failed", zap.String("op", op), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": err.Error()})
}

func (h *AdminHandler) DBPing(c echo.Context) error {
	if h.adminRepository == nil {
		return h.failed(c, "dbping", errDatabaseNotConfigured)
	}
	version, err := h.adminRepository.Version()
	if err != nil {
		return h.failed(c, "dbping", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "version": version})
}

func (h *AdminHandler) Migrate(c echo.Context) error {
	if h.adminRepository == nil {
		return h.failed(c, "migrate", errDatabaseNotConfigured)
	}
	if err := h.adminRepository.Migrate(); err != nil {
		return h.failed(c, "migrate", err)
	}
	h.logger.Info("schema migrated")
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "applied": true})
}

func (h *AdminHandler) DBCheck(c echo.Context) error {
	if h.adminRepository == nil {
		return h.failed(c, "dbcheck", errDatabaseNotConfigured)
	}
	stats, err := h.adminRepository.Stats()
	if err != nil {
		return h.failed(c, "dbcheck", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":        true,
		"users":     stats.Users,
		"zanges":    stats.Zanges,
		"comments":  stats.Comments,
		"reactions": stats.Reactions,
	})
}

func (h *AdminHandler) Seed(c echo.Context) error {
	if h.adminRepository == nil {
		return h.failed(c, "seed", errDatabaseNotConfigured)
	}
	res, err := h.adminRepository.Seed()
	if err != nil {
		return h.failed(c, "seed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "user_id": res.UserID, "zange_id": res.ZangeID})
}
