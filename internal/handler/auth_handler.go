package handler

import (
	"net/http"

	"clinic_backend/internal/middleware"
	"clinic_backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginRecorder counts login attempts.
type LoginRecorder interface {
	RecordLogin(success bool)
}

// AuthHandler handles authentication requests
type AuthHandler struct {
	service service.AuthService
	logins  LoginRecorder
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. logins may be nil.
func NewAuthHandler(s service.AuthService, logins LoginRecorder, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: s, logins: logins, logger: logger}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	account, token, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if h.logins != nil {
		h.logins.RecordLogin(err == nil)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user := gin.H{
		"id":       account.ID,
		"username": account.Username,
		"role":     account.Role,
	}
	if account.Profile != nil {
		user["profileId"] = account.Profile.ID
		user["profileKind"] = account.Profile.Kind
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// Logout acknowledges the request. The token stays valid until it expires;
// the client must discard it.
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)
	if err := h.service.Logout(c.Request.Context(), identity); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out. Discard the token on the client; it remains valid until it expires."})
}

// RegisterAuthRoutes registers auth routes. loginLimit may be nil.
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup, guard *middleware.Guard, loginLimit gin.HandlerFunc) {
	if loginLimit != nil {
		rg.POST("/login", loginLimit, h.Login)
	} else {
		rg.POST("/login", h.Login)
	}
	rg.POST("/logout", guard.For(middleware.OpLogout), h.Logout)
}
