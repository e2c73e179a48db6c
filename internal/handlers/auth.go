package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/zange-app/zange/backend/internal/middleware"
	"github.com/zange-app/zange/backend/internal/models"
	"github.com/zange-app/zange/backend/internal/repositories"
	"github.com/zange-app/zange/backend/pkg/normalize"
)

const minPasswordLength = 8

// AuthHandler handles session authentication
type AuthHandler struct {
	userRepository repositories.UserRepository
	firebaseAuth   middleware.IDTokenVerifier
	jwtSecret      string
	secureCookie   bool
	logger         *zap.Logger
	now            func() time.Time
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, which
// leaves /firebase-login unregistered.
func NewAuthHandler(userRepo repositories.UserRepository, firebaseAuth middleware.IDTokenVerifier, jwtSecret string, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		firebaseAuth:   firebaseAuth,
		jwtSecret:      jwtSecret,
		secureCookie:   secureCookie,
		logger:         logger,
		now:            time.Now,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me, middleware.OptionalJWTAuth(h.jwtSecret))
	if h.firebaseAuth != nil {
		g.POST("/firebase-login", h.FirebaseLogin, middleware.FirebaseAuthMiddleware(h.firebaseAuth))
	}
}

// Signup creates a password account and starts a session.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request payload")
	}

	email := normalize.Email(req.Email)
	password := normalize.Password(req.Password)
	if email == "" || password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password required")
	}
	if normalize.Length(password) < minPasswordLength {
		return echo.NewHTTPError(http.StatusBadRequest, "password too short")
	}

	if _, err := h.userRepository.GetUserByEmail(email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to hash password")
	}

	user := &models.User{
		Email:        &email,
		Nickname:     strings.TrimSpace(req.Nickname),
		PasswordHash: string(hashed),
	}
	if err := h.userRepository.CreateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}
	h.logger.Info("user signed up", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusCreated, echo.Map{"ok": true, "user": userView(user)})
}

// Login checks the password as typed first, then in normalized form.
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request payload")
	}

	user, err := h.findLoginUser(req.Email)
	if err != nil {
		return err
	}
	if user == nil || !passwordMatches(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "user": userView(user)})
}

func (h *AuthHandler) findLoginUser(raw string) (*models.User, error) {
	user, err := h.userRepository.GetUserByEmail(raw)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func passwordMatches(hash, password string) bool {
	if hash == "" {
		return false
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil {
		return true
	}
	norm := normalize.Password(password)
	return norm != password && bcrypt.CompareHashAndPassword([]byte(hash), []byte(norm)) == nil
}

func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.sessionCookie("", -1))
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Me always answers 200; ok is false when nobody is signed in.
func (h *AuthHandler) Me(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return c.JSON(http.StatusOK, echo.Map{"ok": false, "user": nil})
	}
	user, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"ok": false, "user": nil})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "user": userView(user)})
}

// FirebaseLogin exchanges a verified Firebase ID token for a session.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	token, ok := c.Get(middleware.FirebaseTokenKey).(*auth.Token)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing firebase token")
	}
	email, _ := token.Claims["email"].(string)
	name, _ := token.Claims["name"].(string)
	picture, _ := token.Claims["picture"].(string)

	user, err := h.userRepository.GetUserByFirebaseUID(token.UID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		if normalize.Email(email) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "firebase account has no email")
		}
		user, err = h.userRepository.UpsertByEmail(email, name, picture)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		uid := token.UID
		user.FirebaseUID = &uid
		if err := h.userRepository.UpdateUser(user); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to link firebase account")
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "user": userView(user)})
}

func (h *AuthHandler) startSession(c echo.Context, user *models.User) error {
	token, err := middleware.IssueSessionToken(h.jwtSecret, user, h.now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate token")
	}
	c.SetCookie(h.sessionCookie(token, int(middleware.SessionTTL/time.Second)))
	return nil
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
