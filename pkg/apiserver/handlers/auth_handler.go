package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/apiserver/middleware"
	"github.com/sitegrid/sitegrid/pkg/auth"
	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/store"
)

type AuthHandler struct {
	store  store.SiteStore
	tokens *auth.TokenManager
	logger *zap.Logger
}

func NewAuthHandler(s store.SiteStore, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{store: s, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userCreateRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	user, err := h.store.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.tokens.GenerateAccessToken(user)
	if err != nil {
		h.logger.Error("failed to sign access token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.tokens.TTL().Seconds()),
		"role":         user.Role,
	})
}

func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req userCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	role := model.Role(req.Role)
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	user := &model.User{Username: req.Username, PasswordHash: hash, Role: role}
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		respondError(c, h.logger, err, "create user")
		return
	}
	c.JSON(http.StatusCreated, mapUser(user))
}

func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
		return
	}
	id, err := claims.UserUUID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	user, err := h.store.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "get user")
		return
	}
	c.JSON(http.StatusOK, mapUser(user))
}
