// Package handlers implements the JSON API surface over the store, the
// statistics aggregator and the auth layer.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smart-expense-tracker/internal/auth"
	"smart-expense-tracker/internal/config"
	"smart-expense-tracker/internal/mail"
	"smart-expense-tracker/internal/models"
	"smart-expense-tracker/internal/stats"
	"smart-expense-tracker/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// userKey is the gin context key the auth middleware stores the user under.
const userKey = "user"

// Handlers holds dependencies for the HTTP handlers.
type Handlers struct {
	db     *storage.DB
	agg    *stats.Aggregator
	cfg    config.Config
	mailer mail.Mailer
	ai     *openai.Client
	log    zerolog.Logger
}

// New creates a Handlers instance. The AI coach client is only constructed
// when an OpenAI key is configured.
func New(db *storage.DB, cfg config.Config, mailer mail.Mailer, log zerolog.Logger) *Handlers {
	h := &Handlers{
		db:     db,
		agg:    stats.New(db),
		cfg:    cfg,
		mailer: mailer,
		log:    log,
	}
	if cfg.OpenAIKey != "" {
		oc := openai.DefaultConfig(cfg.OpenAIKey)
		if cfg.OpenAIBaseURL != "" {
			oc.BaseURL = cfg.OpenAIBaseURL
		}
		h.ai = openai.NewClientWithConfig(oc)
	}
	return h
}

// RegisterRoutes attaches all API routes to the engine.
func (h *Handlers) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to Smart Expense Tracker API",
			"version": "1.0.0",
			"status":  "active",
		})
	})

	api := r.Group("/api")

	users := api.Group("/users")
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.GET("/profile", h.AuthRequired(), h.GetProfile)
	users.PATCH("/profile", h.AuthRequired(), h.UpdateProfile)
	users.PATCH("/password", h.AuthRequired(), h.UpdatePassword)

	reset := api.Group("/auth")
	reset.POST("/forgot-password", h.ForgotPassword)
	reset.POST("/reset-password", h.ResetPassword)

	expenses := api.Group("/expenses", h.AuthRequired())
	expenses.POST("", h.CreateExpense)
	expenses.GET("", h.ListExpenses)
	expenses.GET("/stats", h.MonthlyStats)
	expenses.GET("/stats/week", h.WeeklyStats)
	expenses.GET("/stats/year", h.YearlyStats)
	expenses.GET("/stats/timeline", h.TimelineStats)
	expenses.GET("/:id", h.GetExpense)
	expenses.PATCH("/:id", h.UpdateExpense)
	expenses.DELETE("/:id", h.DeleteExpense)

	recurring := api.Group("/recurring", h.AuthRequired())
	recurring.POST("", h.CreateRecurring)
	recurring.GET("", h.ListRecurring)
	recurring.GET("/:id", h.GetRecurring)
	recurring.PUT("/:id", h.UpdateRecurring)
	recurring.DELETE("/:id", h.DeleteRecurring)

	notifications := api.Group("/notifications", h.AuthRequired())
	notifications.GET("", h.ListNotifications)
	notifications.PATCH("/:id/read", h.MarkNotificationRead)

	api.POST("/coach", h.AuthRequired(), h.Coach)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "The requested resource does not exist",
		})
	})
}

// AuthRequired verifies the bearer token, loads the user and stores it in
// the request context. Core calls downstream receive the user ID as an
// explicit argument, never through ambient state.
func (h *Handlers) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}
		userID, err := auth.VerifyToken([]byte(h.cfg.JWTSecret), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		user, err := h.db.GetUserByID(userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// RequestLogger logs each request through zerolog.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// respondError writes the API error shape. Validation failures map to 400,
// missing records to 404.
func respondError(c *gin.Context, status int, title string, err error) {
	resp := gin.H{"error": title}
	if err != nil {
		resp["message"] = err.Error()
	}
	c.JSON(status, resp)
}

func respondStoreError(c *gin.Context, h *Handlers, title string, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, title, err)
	case errors.Is(err, storage.ErrNotFound):
		respondError(c, http.StatusNotFound, title, errors.New("not found"))
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(title)
		respondError(c, http.StatusInternalServerError, title, nil)
	}
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// endOfDay pushes a date-only bound to the last instant of its day so
// inclusive windows capture the whole day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, 1).Add(-time.Nanosecond)
}
