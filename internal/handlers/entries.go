package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"smart-expense-tracker/internal/models"
	"smart-expense-tracker/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type entryRequest struct {
	Kind               string          `json:"type"`
	Amount             decimal.Decimal `json:"amount"`
	Category           string          `json:"category"`
	Description        string          `json:"description"`
	Date               string          `json:"date"`
	PaymentMethod      string          `json:"payment_method"`
	Location           string          `json:"location"`
	Tags               []string        `json:"tags"`
	Receipt            string          `json:"receipt"`
	IsRecurring        bool            `json:"is_recurring"`
	RecurringFrequency string          `json:"recurring_frequency"`
}

// CreateExpense records a new ledger entry for the authenticated user.
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Failed to create expense", err)
		return
	}

	user := currentUser(c)
	entry := &models.Entry{
		ID:                 uuid.New().String(),
		UserID:             user.ID,
		Kind:               models.Kind(req.Kind),
		Amount:             req.Amount,
		Category:           req.Category,
		Description:        req.Description,
		PaymentMethod:      req.PaymentMethod,
		Location:           req.Location,
		Tags:               req.Tags,
		Receipt:            req.Receipt,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: req.RecurringFrequency,
	}
	if entry.Kind == "" {
		entry.Kind = models.KindExpense
	}
	if entry.PaymentMethod == "" {
		entry.PaymentMethod = models.DefaultPaymentMethod
	}
	if req.Date == "" {
		entry.Date = time.Now().UTC()
	} else {
		date, err := parseDate(req.Date)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Failed to create expense", err)
			return
		}
		entry.Date = date
	}

	if err := entry.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "Failed to create expense", err)
		return
	}
	if err := h.db.CreateEntry(entry); err != nil {
		respondStoreError(c, h, "Failed to create expense", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListExpenses returns a filtered, sorted, paginated page of the user's
// entries.
func (h *Handlers) ListExpenses(c *gin.Context) {
	filter := storage.EntryFilter{
		Category: c.Query("category"),
	}
	if startStr, endStr := c.Query("start_date"), c.Query("end_date"); startStr != "" && endStr != "" {
		start, err := parseDate(startStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Failed to fetch expenses", err)
			return
		}
		end, err := parseDate(endStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Failed to fetch expenses", err)
			return
		}
		end = endOfDay(end)
		filter.StartDate = &start
		filter.EndDate = &end
	}
	if sortBy := c.Query("sort_by"); sortBy != "" {
		parts := strings.SplitN(sortBy, ":", 2)
		filter.SortBy = parts[0]
		filter.SortAsc = len(parts) < 2 || parts[1] != "desc"
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))

	user := currentUser(c)
	entries, total, err := h.db.ListEntries(user.ID, filter)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch expenses", err)
		return
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	c.JSON(http.StatusOK, gin.H{
		"expenses":    entries,
		"total":       total,
		"page":        max(filter.Page, 1),
		"total_pages": int(math.Ceil(float64(total) / float64(limit))),
	})
}

// GetExpense returns one entry owned by the authenticated user.
func (h *Handlers) GetExpense(c *gin.Context) {
	user := currentUser(c)
	entry, err := h.db.GetEntry(c.Param("id"), user.ID)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch expense", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// entryUpdateFields is the allow-list for entry patches.
var entryUpdateFields = map[string]bool{
	"amount":         true,
	"category":       true,
	"description":    true,
	"date":           true,
	"payment_method": true,
	"location":       true,
	"tags":           true,
}

// UpdateExpense patches an entry's mutable fields.
func (h *Handlers) UpdateExpense(c *gin.Context) {
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		respondError(c, http.StatusBadRequest, "Update failed", err)
		return
	}
	for field := range raw {
		if !entryUpdateFields[field] {
			respondError(c, http.StatusBadRequest, "Invalid updates", nil)
			return
		}
	}

	user := currentUser(c)
	entry, err := h.db.GetEntry(c.Param("id"), user.ID)
	if err != nil {
		respondStoreError(c, h, "Update failed", err)
		return
	}

	if err := applyEntryPatch(entry, raw); err != nil {
		respondError(c, http.StatusBadRequest, "Update failed", err)
		return
	}
	if err := entry.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "Update failed", err)
		return
	}
	if err := h.db.UpdateEntry(entry); err != nil {
		respondStoreError(c, h, "Update failed", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteExpense removes an entry. Hard delete on explicit request.
func (h *Handlers) DeleteExpense(c *gin.Context) {
	user := currentUser(c)
	if err := h.db.DeleteEntry(c.Param("id"), user.ID); err != nil {
		respondStoreError(c, h, "Delete failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}

func applyEntryPatch(entry *models.Entry, raw map[string]json.RawMessage) error {
	if v, ok := raw["amount"]; ok {
		if err := json.Unmarshal(v, &entry.Amount); err != nil {
			return err
		}
	}
	if v, ok := raw["category"]; ok {
		if err := json.Unmarshal(v, &entry.Category); err != nil {
			return err
		}
	}
	if v, ok := raw["description"]; ok {
		if err := json.Unmarshal(v, &entry.Description); err != nil {
			return err
		}
	}
	if v, ok := raw["payment_method"]; ok {
		if err := json.Unmarshal(v, &entry.PaymentMethod); err != nil {
			return err
		}
	}
	if v, ok := raw["location"]; ok {
		if err := json.Unmarshal(v, &entry.Location); err != nil {
			return err
		}
	}
	if v, ok := raw["tags"]; ok {
		if err := json.Unmarshal(v, &entry.Tags); err != nil {
			return err
		}
	}
	if v, ok := raw["date"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		date, err := parseDate(s)
		if err != nil {
			return err
		}
		entry.Date = date
	}
	return nil
}
