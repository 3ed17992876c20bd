package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"smart-expense-tracker/internal/auth"
	"smart-expense-tracker/internal/models"
	"smart-expense-tracker/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

const minPasswordLen = 6

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account and returns it with a bearer token.
func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Registration failed", err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.Name) < 2 {
		respondError(c, http.StatusBadRequest, "Registration failed", errors.New("name must be at least 2 characters long"))
		return
	}
	if !emailPattern.MatchString(req.Email) {
		respondError(c, http.StatusBadRequest, "Registration failed", errors.New("please enter a valid email"))
		return
	}
	if len(req.Password) < minPasswordLen {
		respondError(c, http.StatusBadRequest, "Registration failed", errors.New("password must be at least 6 characters long"))
		return
	}

	if _, err := h.db.GetUserByEmail(req.Email); err == nil {
		respondError(c, http.StatusBadRequest, "Email already registered", nil)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondStoreError(c, h, "Registration failed", err)
		return
	}
	user := &models.User{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Email:         req.Email,
		PasswordHash:  hash,
		MonthlyBudget: decimal.Zero,
	}
	if err := h.db.CreateUser(user); err != nil {
		respondStoreError(c, h, "Registration failed", err)
		return
	}

	token, err := auth.GenerateToken([]byte(h.cfg.JWTSecret), user.ID, h.cfg.TokenTTL)
	if err != nil {
		respondStoreError(c, h, "Registration failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and returns a bearer token.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Login failed", err)
		return
	}

	user, err := h.db.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		respondError(c, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	now := time.Now().UTC()
	if err := h.db.UpdateLastLogin(user.ID, now); err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to record login")
	}
	user.LastLogin = &now

	token, err := auth.GenerateToken([]byte(h.cfg.JWTSecret), user.ID, h.cfg.TokenTTL)
	if err != nil {
		respondStoreError(c, h, "Login failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// GetProfile returns the authenticated user's public profile.
func (h *Handlers) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// profileUpdateFields is the allow-list for profile patches.
var profileUpdateFields = map[string]bool{
	"name":             true,
	"monthly_budget":   true,
	"category_budgets": true,
}

// UpdateProfile patches the mutable profile fields. Requests naming any
// other field are rejected outright.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		respondError(c, http.StatusBadRequest, "Update failed", err)
		return
	}
	for field := range raw {
		if !profileUpdateFields[field] {
			respondError(c, http.StatusBadRequest, "Invalid updates", nil)
			return
		}
	}

	user := currentUser(c)
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &user.Name); err != nil {
			respondError(c, http.StatusBadRequest, "Update failed", err)
			return
		}
	}
	if v, ok := raw["monthly_budget"]; ok {
		if err := json.Unmarshal(v, &user.MonthlyBudget); err != nil {
			respondError(c, http.StatusBadRequest, "Update failed", err)
			return
		}
	}
	if v, ok := raw["category_budgets"]; ok {
		if err := json.Unmarshal(v, &user.CategoryBudgets); err != nil {
			respondError(c, http.StatusBadRequest, "Update failed", err)
			return
		}
	}

	if err := h.db.UpdateProfile(user); err != nil {
		respondStoreError(c, h, "Update failed", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type passwordUpdateRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UpdatePassword changes the authenticated user's password after verifying
// the current one.
func (h *Handlers) UpdatePassword(c *gin.Context) {
	var req passwordUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Password update failed", err)
		return
	}

	user := currentUser(c)
	if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		respondError(c, http.StatusUnauthorized, "Current password is incorrect", nil)
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		respondError(c, http.StatusBadRequest, "Password update failed", errors.New("password must be at least 6 characters long"))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondStoreError(c, h, "Password update failed", err)
		return
	}
	if err := h.db.UpdatePassword(user.ID, hash); err != nil {
		respondStoreError(c, h, "Password update failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// resetTokenTTL is how long a password reset link stays valid.
const resetTokenTTL = time.Hour

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a reset token when the email matches an account.
// The response is identical either way, so the endpoint cannot be used to
// probe for registered addresses.
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Request failed", err)
		return
	}

	if user, err := h.db.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email))); err == nil {
		token, err := auth.GenerateResetToken()
		if err == nil {
			err = h.db.SetResetToken(user.ID, token, time.Now().UTC().Add(resetTokenTTL))
		}
		if err == nil {
			resetURL := h.cfg.BaseURL + "/api/auth/reset-password?token=" + token
			if err := h.mailer.Send(user.Email, "Password Reset", "Reset your password: "+resetURL); err != nil {
				h.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send reset email")
			}
		} else {
			h.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue reset token")
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		h.log.Error().Err(err).Msg("reset lookup failed")
	}

	c.JSON(http.StatusOK, gin.H{"message": "If an account with that email exists, a reset link has been sent."})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword consumes a reset token and sets the new password.
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Reset failed", err)
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		respondError(c, http.StatusBadRequest, "Reset failed", errors.New("password must be at least 6 characters long"))
		return
	}

	user, err := h.db.GetUserByResetToken(req.Token, time.Now().UTC())
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid or expired token", nil)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondStoreError(c, h, "Reset failed", err)
		return
	}
	if err := h.db.UpdatePassword(user.ID, hash); err != nil {
		respondStoreError(c, h, "Reset failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset."})
}
