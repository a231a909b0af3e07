package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/labworks/labops/events"
	"github.com/labworks/labops/models"
	"github.com/labworks/labops/utils"
)

// AuthController handles login, logout and the current user's profile.
type AuthController struct {
	db  *gorm.DB
	bus *events.Bus
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, bus *events.Bus) *AuthController {
	return &AuthController{db: db, bus: bus}
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		// Same message for unknown email and bad password.
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid email or password")
		return
	}
	if !user.Active {
		utils.Error(ctx, http.StatusForbidden, 40310, "account is disabled")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid email or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Name, user.Role)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to issue token")
		return
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := a.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		utils.Sugar.Warnf("failed to record last login for user %d: %v", user.ID, err)
	}

	if a.bus != nil {
		a.bus.Publish(events.Event{
			Type:        events.UserLoggedIn,
			Description: user.Name + " logged in",
			UserID:      user.ID,
		})
	}

	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// Logout revokes the presented token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40010, "missing bearer token")
		return
	}
	tokenString := strings.TrimSpace(parts[1])

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}
	if claims.ExpiresAt != nil {
		utils.BlacklistToken(tokenString, claims.ExpiresAt.Time)
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's record.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// UpdateProfile lets a user change their own name, department and password.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Name        string `json:"name"`
		Department  string `json:"department"`
		Password    string `json:"password"`
		OldPassword string `json:"old_password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}

	if req.Name != "" {
		user.Name = utils.Sanitize(strings.TrimSpace(req.Name))
	}
	if req.Department != "" {
		user.Department = utils.Sanitize(strings.TrimSpace(req.Department))
	}
	if req.Password != "" {
		if !utils.CheckPassword(user.PasswordHash, req.OldPassword) {
			utils.Error(ctx, http.StatusForbidden, 40311, "current password is incorrect")
			return
		}
		if len(req.Password) < 6 {
			utils.Error(ctx, http.StatusBadRequest, 40011, "password must be at least 6 characters")
			return
		}
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to hash password")
			return
		}
		user.PasswordHash = hash
	}

	if err := a.db.Save(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to update profile")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// UserController handles admin-only user management.
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a UserController.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// List returns paginated users.
func (u *UserController) List(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var users []models.User
	var total int64
	if err := u.db.Model(&models.User{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to count users")
		return
	}
	if err := u.db.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to list users")
		return
	}

	utils.Success(ctx, gin.H{
		"items": users,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// Create adds a lab member account.
func (u *UserController) Create(ctx *gin.Context) {
	var req struct {
		Name       string `json:"name" binding:"required,min=2,max=128"`
		Email      string `json:"email" binding:"required,email"`
		Password   string `json:"password" binding:"required,min=6"`
		Role       string `json:"role"`
		Department string `json:"department"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleTechnician
	}
	if !models.IsValidRole(role) {
		utils.Error(ctx, http.StatusBadRequest, 40012, "invalid role")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var existing models.User
	if err := u.db.Where("email = ?", email).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40910, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to hash password")
		return
	}

	user := models.User{
		Name:         utils.Sanitize(strings.TrimSpace(req.Name)),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Department:   utils.Sanitize(strings.TrimSpace(req.Department)),
		Active:       true,
	}
	if err := u.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to create user")
		return
	}

	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"user": user}})
}

// Update edits a user's role, department or active flag.
func (u *UserController) Update(ctx *gin.Context) {
	var req struct {
		Name       string `json:"name"`
		Role       string `json:"role"`
		Department string `json:"department"`
		Active     *bool  `json:"active"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	var user models.User
	if err := u.db.First(&user, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50016, "failed to load user")
		return
	}

	if req.Name != "" {
		user.Name = utils.Sanitize(strings.TrimSpace(req.Name))
	}
	if req.Role != "" {
		if !models.IsValidRole(req.Role) {
			utils.Error(ctx, http.StatusBadRequest, 40012, "invalid role")
			return
		}
		user.Role = req.Role
	}
	if req.Department != "" {
		user.Department = utils.Sanitize(strings.TrimSpace(req.Department))
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := u.db.Save(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50017, "failed to update user")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// Delete soft-deletes a user account.
func (u *UserController) Delete(ctx *gin.Context) {
	actorID, _ := getUserID(ctx)

	var user models.User
	if err := u.db.First(&user, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50016, "failed to load user")
		return
	}
	if user.ID == actorID {
		utils.Error(ctx, http.StatusBadRequest, 40013, "cannot delete your own account")
		return
	}

	if err := u.db.Delete(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50018, "failed to delete user")
		return
	}
	utils.Success(ctx, gin.H{"message": "user deleted"})
}
