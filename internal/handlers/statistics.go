package handlers

import (
	"net/http"
	"strconv"
	"time"

	"smart-expense-tracker/internal/models"
	"smart-expense-tracker/internal/stats"

	"github.com/gin-gonic/gin"
)

// MonthlyStats returns totals and category breakdowns for one calendar
// month, defaulting to the current one. Net income is derived here from the
// two per-kind totals.
func (h *Handlers) MonthlyStats(c *gin.Context) {
	now := time.Now().UTC()
	year := now.Year()
	month := int(now.Month())
	if v := c.Query("year"); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := c.Query("month"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	user := currentUser(c)
	totalExpenses, err := h.agg.MonthlyTotal(user.ID, time.Month(month), year, models.KindExpense)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch statistics", err)
		return
	}
	totalIncome, err := h.agg.MonthlyTotal(user.ID, time.Month(month), year, models.KindIncome)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch statistics", err)
		return
	}
	expenseCategories, err := h.agg.MonthlyCategoryTotals(user.ID, time.Month(month), year, models.KindExpense)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch statistics", err)
		return
	}
	incomeCategories, err := h.agg.MonthlyCategoryTotals(user.ID, time.Month(month), year, models.KindIncome)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch statistics", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"month":                   month,
		"year":                    year,
		"total_expenses":          totalExpenses,
		"total_income":            totalIncome,
		"expense_category_totals": expenseCategories,
		"income_category_totals":  incomeCategories,
		"net_income":              totalIncome.Sub(totalExpenses),
	})
}

// WeeklyStats returns totals and category breakdowns over a caller-supplied
// inclusive window, defaulting to today. The window need not align to a
// calendar week.
func (h *Handlers) WeeklyStats(c *gin.Context) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := endOfDay(now)
	if v := c.Query("week_start"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Failed to fetch weekly statistics", err)
			return
		}
		start = t
	}
	if v := c.Query("week_end"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Failed to fetch weekly statistics", err)
			return
		}
		end = endOfDay(t)
	}

	user := currentUser(c)
	expenseCategories, err := h.agg.RangeCategoryTotals(user.ID, start, end, models.KindExpense)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch weekly statistics", err)
		return
	}
	incomeCategories, err := h.agg.RangeCategoryTotals(user.ID, start, end, models.KindIncome)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch weekly statistics", err)
		return
	}
	totalExpenses := stats.SumCategoryTotals(expenseCategories)
	totalIncome := stats.SumCategoryTotals(incomeCategories)

	c.JSON(http.StatusOK, gin.H{
		"week_start":              start,
		"week_end":                end,
		"total_expenses":          totalExpenses,
		"expense_category_totals": expenseCategories,
		"total_income":            totalIncome,
		"income_category_totals":  incomeCategories,
		"net_income":              totalIncome.Sub(totalExpenses),
	})
}

// YearlyStats returns totals and category breakdowns for one calendar
// year, defaulting to the current one.
func (h *Handlers) YearlyStats(c *gin.Context) {
	year := time.Now().UTC().Year()
	if v := c.Query("year"); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}

	user := currentUser(c)
	expenseCategories, err := h.agg.YearlyCategoryTotals(user.ID, year, models.KindExpense)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch yearly statistics", err)
		return
	}
	incomeCategories, err := h.agg.YearlyCategoryTotals(user.ID, year, models.KindIncome)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch yearly statistics", err)
		return
	}
	totalExpenses := stats.SumCategoryTotals(expenseCategories)
	totalIncome := stats.SumCategoryTotals(incomeCategories)

	c.JSON(http.StatusOK, gin.H{
		"year":                    year,
		"total_expenses":          totalExpenses,
		"total_income":            totalIncome,
		"expense_category_totals": expenseCategories,
		"income_category_totals":  incomeCategories,
		"net_income":              totalIncome.Sub(totalExpenses),
	})
}

// TimelineStats returns time-bucketed totals for one kind: by month across
// a year, by day across a month, or by (iso week, day) across a week
// window.
func (h *Handlers) TimelineStats(c *gin.Context) {
	period := stats.Period(c.Query("period"))
	if !period.Valid() {
		respondError(c, http.StatusBadRequest, "Failed to fetch timeline statistics",
			&models.ValidationError{Field: "period", Reason: "must be year, month or week"})
		return
	}
	kind := models.Kind(c.DefaultQuery("type", string(models.KindExpense)))
	if !kind.Valid() {
		respondError(c, http.StatusBadRequest, "Failed to fetch timeline statistics",
			&models.ValidationError{Field: "type", Reason: "must be expense or income"})
		return
	}

	now := time.Now().UTC()
	year := now.Year()
	month := int(now.Month())
	if v := c.Query("year"); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := c.Query("month"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	var weekStart, weekEnd *time.Time
	if v := c.Query("week_start"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Failed to fetch timeline statistics", err)
			return
		}
		weekStart = &t
	}
	if v := c.Query("week_end"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Failed to fetch timeline statistics", err)
			return
		}
		e := endOfDay(t)
		weekEnd = &e
	}

	user := currentUser(c)
	timeline, err := h.agg.Timeline(user.ID, period, year, time.Month(month), kind, weekStart, weekEnd)
	if err != nil {
		respondStoreError(c, h, "Failed to fetch timeline statistics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeline": timeline})
}
