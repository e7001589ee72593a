package handler

import (
	"net/http"

	"clinic_backend/internal/middleware"
	"clinic_backend/internal/model"
	"clinic_backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler serves accounts and their doctor or patient profiles.
type UserHandler struct {
	profiles service.ProfileService
	auth     service.AuthService
	logger   *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(profiles service.ProfileService, auth service.AuthService, logger *zap.Logger) *UserHandler {
	return &UserHandler{profiles: profiles, auth: auth, logger: logger}
}

func (h *UserHandler) GetUserByUsername(c *gin.Context) {
	user, err := h.profiles.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe edits the caller's own profile. Fields outside the role's
// allow-list are ignored.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	identity, _ := middleware.IdentityFrom(c)

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	profile, err := h.profiles.UpdateOwnProfile(c.Request.Context(), identity, fields)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "profile": profile})
}

func (h *UserHandler) ListPatients(c *gin.Context) {
	users, err := h.profiles.ListPatients(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) ListDoctors(c *gin.Context) {
	users, err := h.profiles.ListDoctors(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) CreateDoctor(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	account, doctor, err := h.profiles.CreateDoctor(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Doctor created",
		"doctor": gin.H{
			"id":        doctor.ID,
			"accountId": account.ID,
			"username":  account.Username,
			"fullName":  doctor.FullName,
			"specialty": doctor.Specialty,
			"phone":     doctor.Phone,
			"email":     doctor.Email,
		},
	})
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username is required")
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Username); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password for '" + req.Username + "' has been reset"})
}

// RegisterUserRoutes registers account and profile routes
func (h *UserHandler) RegisterUserRoutes(rg *gin.RouterGroup, guard *middleware.Guard) {
	rg.GET("/users/username/:username", guard.For(middleware.OpGetUserByUsername), h.GetUserByUsername)
	rg.PATCH("/users/me", guard.For(middleware.OpUpdateOwnProfile), h.UpdateMe)
	rg.GET("/patients", guard.For(middleware.OpListPatients), h.ListPatients)
	rg.GET("/doctors", guard.For(middleware.OpListDoctors), h.ListDoctors)
	rg.POST("/doctors", guard.For(middleware.OpCreateDoctor), h.CreateDoctor)
	rg.POST("/reset-password", guard.For(middleware.OpResetPassword), h.ResetPassword)
}
