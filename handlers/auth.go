package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront-svc/middleware"
	"storefront-svc/models"
	"storefront-svc/users"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	UserFinder
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	UpdateName(ctx context.Context, id, name string) (*models.User, error)
}

type AuthHandler struct {
	users     UserStore
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAuthHandler(store UserStore, jwtSecret []byte, tokenTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:     store,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user, err := h.users.Create(c.Request.Context(), strings.TrimSpace(req.Name), email, string(hashedPassword))
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "User already exists", "kind": "conflict"})
			return
		}
		respondError(c, h.logger, err)
		return
	}

	traceID := middleware.GetTraceID(c.Request.Context())
	h.logger.Info("User registered", zap.String("trace_id", traceID), zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// Verify password
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "kind": "unauthenticated"})
		return
	}

	token, err := middleware.IssueToken(h.jwtSecret, user.ExternalID, user.Email, h.tokenTTL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	traceID := middleware.GetTraceID(c.Request.Context())
	h.logger.Info("User logged in", zap.String("trace_id", traceID), zap.String("user_id", user.ID))
	c.JSON(http.StatusOK, models.LoginResponse{
		Token: token,
		User:  *user,
	})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := currentUser(c, h.users)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		badRequest(c, errors.New("name must not be blank"))
		return
	}

	user, err := currentUser(c, h.users)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	updated, err := h.users.UpdateName(c.Request.Context(), user.ID, name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Profile updated",
		zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
		zap.String("user_id", updated.ID),
	)
	c.JSON(http.StatusOK, updated)
}
