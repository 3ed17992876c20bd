package handlers

import (
	"net/http"

	"smart-expense-tracker/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type recurringRequest struct {
	Kind           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	PaymentMethod  string          `json:"payment_method"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	Frequency      string          `json:"frequency"`
	Interval       int             `json:"interval"`
	NextOccurrence string          `json:"next_occurrence"`
	Active         *bool           `json:"active"`
}

func (req *recurringRequest) toRule(userID string) (*models.RecurringRule, error) {
	rule := &models.RecurringRule{
		ID:            uuid.New().String(),
		UserID:        userID,
		Kind:          models.Kind(req.Kind),
		Amount:        req.Amount,
		Category:      req.Category,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Frequency:     models.Frequency(req.Frequency),
		Interval:      req.Interval,
		Active:        true,
	}
	if rule.Kind == "" {
		rule.Kind = models.KindExpense
	}
	if rule.PaymentMethod == "" {
		rule.PaymentMethod = models.DefaultPaymentMethod
	}
	if rule.Interval == 0 {
		rule.Interval = 1
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if req.StartDate != "" {
		t, err := parseDate(req.StartDate)
		if err != nil {
			return nil, err
		}
		rule.StartDate = t
	}
	if req.EndDate != "" {
		t, err := parseDate(req.EndDate)
		if err != nil {
			return nil, err
		}
		end := endOfDay(t)
		rule.EndDate = &end
	}
	if req.NextOccurrence != "" {
		t, err := parseDate(req.NextOccurrence)
		if err != nil {
			return nil, err
		}
		rule.NextOccurrence = t
	} else {
		// First materialization happens on the start date.
		rule.NextOccurrence = rule.StartDate
	}
	return rule, nil
}

// CreateRecurring registers a new recurring rule for the authenticated
// user.
func (h *Handlers) CreateRecurring(c *gin.Context) {
	var req recurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Failed to create recurring transaction", err)
		return
	}

	user := currentUser(c)
	rule, err := req.toRule(user.ID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Failed to create recurring transaction", err)
		return
	}
	if err := rule.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "Failed to create recurring transaction", err)
		return
	}
	if err := h.db.CreateRule(rule); err != nil {
		respondStoreError(c, h, "Failed to create recurring transaction", err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// ListRecurring returns all of the user's recurring rules.
func (h *Handlers) ListRecurring(c *gin.Context) {
	user := currentUser(c)
	rules, err := h.db.ListRules(user.ID)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch recurring transactions", err)
		return
	}
	if rules == nil {
		rules = []models.RecurringRule{}
	}
	c.JSON(http.StatusOK, rules)
}

// GetRecurring returns one recurring rule owned by the user.
func (h *Handlers) GetRecurring(c *gin.Context) {
	user := currentUser(c)
	rule, err := h.db.GetRule(c.Param("id"), user.ID)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch recurring transaction", err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRecurring replaces the mutable fields of a rule. The schedule
// fields here are user intent; the recurring job remains the only writer
// that advances next_occurrence past due dates.
func (h *Handlers) UpdateRecurring(c *gin.Context) {
	var req recurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Update failed", err)
		return
	}

	user := currentUser(c)
	existing, err := h.db.GetRule(c.Param("id"), user.ID)
	if err != nil {
		respondStoreError(c, h, "Update failed", err)
		return
	}

	updated, err := req.toRule(user.ID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Update failed", err)
		return
	}
	updated.ID = existing.ID
	updated.LastGenerated = existing.LastGenerated
	updated.CreatedAt = existing.CreatedAt
	if req.NextOccurrence == "" && req.StartDate == "" {
		updated.StartDate = existing.StartDate
		updated.NextOccurrence = existing.NextOccurrence
	}

	if err := updated.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "Update failed", err)
		return
	}
	if err := h.db.UpdateRule(updated); err != nil {
		respondStoreError(c, h, "Update failed", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteRecurring removes a rule. Entries already materialized from it are
// untouched.
func (h *Handlers) DeleteRecurring(c *gin.Context) {
	user := currentUser(c)
	if err := h.db.DeleteRule(c.Param("id"), user.ID); err != nil {
		respondStoreError(c, h, "Delete failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

// ListNotifications returns the user's notification feed, newest first.
func (h *Handlers) ListNotifications(c *gin.Context) {
	user := currentUser(c)
	notifications, err := h.db.ListNotifications(user.ID)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch notifications", err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkNotificationRead flags one notification as read.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	user := currentUser(c)
	if err := h.db.MarkNotificationRead(c.Param("id"), user.ID); err != nil {
		respondStoreError(c, h, "Failed to update notification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
