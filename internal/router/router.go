package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zange-app/zange/backend/internal/handlers"
	"github.com/zange-app/zange/backend/internal/middleware"
	"github.com/zange-app/zange/backend/internal/repositories"
	"github.com/zange-app/zange/backend/internal/validators"
	"github.com/zange-app/zange/backend/pkg/config"
)

// Options carries the dependencies of SetupRoutes. DB may be nil, in which
// case only liveness and admin routes are served and the admin routes report
// the missing database. FirebaseAuth may be nil to disable Firebase login.
type Options struct {
	DB           *gorm.DB
	FirebaseAuth middleware.IDTokenVerifier
	Config       *config.Config
	Logger       *zap.Logger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, opts Options) {
	logger := opts.Logger
	cfg := opts.Config

	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = ErrorHandler(logger)

	var adminRepo repositories.AdminRepository
	if opts.DB != nil {
		adminRepo = repositories.NewAdminRepository(opts.DB)
	}

	handlers.NewHealthHandler(adminRepo).RegisterHealthRoutes(e)
	handlers.NewAdminHandler(adminRepo, cfg.SecretKey, logger).RegisterAdminRoutes(e.Group("/admin"))
	logger.Info("Health and admin routes configured.")

	if opts.DB == nil {
		logger.Warn("No database configured; application routes disabled.")
		return
	}

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(opts.DB)
	zangeRepo := repositories.NewPostgresZangeRepository(opts.DB)
	commentRepo := repositories.NewPostgresCommentRepository(opts.DB)
	reactionRepo := repositories.NewPostgresReactionRepository(opts.DB)
	followRepo := repositories.NewPostgresFollowRepository(opts.DB)
	notificationRepo := repositories.NewPostgresNotificationRepository(opts.DB)
	notifier := handlers.NewOwnerNotifier(notificationRepo, logger)

	// --- Public aggregate API; a session is used when present ---
	e.Use(middleware.OptionalJWTAuth(cfg.JWTSecret))
	public := e.Group("")
	handlers.NewFeedHandler(zangeRepo, commentRepo, reactionRepo).RegisterFeedRoutes(public)
	handlers.NewZangeHandler(zangeRepo, userRepo, logger).RegisterZangeRoutes(public)
	handlers.NewReactionHandler(reactionRepo, zangeRepo, userRepo, notifier).RegisterReactionRoutes(public)
	handlers.NewCommentHandler(commentRepo, zangeRepo, userRepo, notifier).RegisterCommentRoutes(public)
	logger.Info("Feed, zange, reaction and comment routes configured.")

	// --- Session authentication ---
	authHandler := handlers.NewAuthHandler(userRepo, opts.FirebaseAuth, cfg.JWTSecret, cfg.IsProduction(), logger)
	authHandler.RegisterAuthRoutes(e.Group("/api"))
	logger.Info("Auth routes configured.", zap.Bool("firebase_login", opts.FirebaseAuth != nil))

	userHandler := handlers.NewUserHandler(userRepo, followRepo)
	e.GET("/api/users/:id", userHandler.GetUser)

	// --- Protected routes (require a session) ---
	api := e.Group("/api", middleware.JWTAuthMiddleware(cfg.JWTSecret))
	api.PUT("/profile", userHandler.UpdateProfile)
	handlers.NewFollowHandler(followRepo, userRepo, notificationRepo, logger).RegisterFollowRoutes(api)
	handlers.NewNotificationHandler(notificationRepo, userRepo).RegisterNotificationRoutes(api)
	logger.Info("All routes configured.")
}

// ErrorHandler renders errors as {ok:false, error}. Unknown routes get a
// plain-text 404.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if errors.Is(err, echo.ErrNotFound) {
			if sendErr := c.String(http.StatusNotFound, "Not found (custom 404)"); sendErr != nil {
				logger.Warn("failed to send 404", zap.Error(sendErr))
			}
			return
		}

		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = fmt.Sprint(he.Message)
		}
		if code >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]interface{}{"ok": false, "error": msg})
		}
		if err != nil {
			logger.Warn("failed to send error response", zap.Error(err))
		}
	}
}
