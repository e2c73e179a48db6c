package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zange-app/zange/backend/internal/repositories"
)

const banner = "Zange API is running 🚀"

// HealthHandler serves liveness endpoints. They answer 200 even when the
// database is down.
type HealthHandler struct {
	adminRepository repositories.AdminRepository
	now             func() time.Time
}

func NewHealthHandler(adminRepo repositories.AdminRepository) *HealthHandler {
	return &HealthHandler{adminRepository: adminRepo, now: time.Now}
}

func (h *HealthHandler) RegisterHealthRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.HealthCheck)
	e.GET("/api/ping", h.Ping)
}

func (h *HealthHandler) Root(c echo.Context) error {
	return c.String(http.StatusOK, banner)
}

// HealthCheck reports process liveness plus database status.
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	out := echo.Map{
		"status": "ok",
		"time":   h.now().UTC().Format(time.RFC3339Nano),
	}
	if err := h.pingDB(); err != nil {
		out["db"] = "error"
		out["db_message"] = err.Error()
	} else {
		out["db"] = "ok"
	}
	return c.JSON(http.StatusOK, out)
}

func (h *HealthHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "version": "zange-go"})
}

func (h *HealthHandler) pingDB() error {
	if h.adminRepository == nil {
		return errDatabaseNotConfigured
	}
	return h.adminRepository.Ping()
}
