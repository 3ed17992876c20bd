package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smart-expense-tracker/internal/config"
	"smart-expense-tracker/internal/models"
	"smart-expense-tracker/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// recordingMailer captures outbound mail for assertions.
type recordingMailer struct {
	to      []string
	subject []string
	body    []string
}

func (m *recordingMailer) Send(to, subject, body string) error {
	m.to = append(m.to, to)
	m.subject = append(m.subject, subject)
	m.body = append(m.body, body)
	return nil
}

// APITestSuite drives the handlers through a real router and an in-memory
// database.
type APITestSuite struct {
	suite.Suite
	db     *storage.DB
	router *gin.Engine
	mailer *recordingMailer
	token  string
	userID string
}

func (suite *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.mailer = &recordingMailer{}

	cfg := config.Config{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		BaseURL:   "http://localhost:8080",
	}
	h := New(db, cfg, suite.mailer, zerolog.Nop())

	suite.router = gin.New()
	h.RegisterRoutes(suite.router)

	// Register a default user and keep its token.
	resp := suite.request("POST", "/api/users/register", gin.H{
		"name":     "Test User",
		"email":    "test@example.com",
		"password": "secret123",
	}, "")
	require.Equal(suite.T(), http.StatusCreated, resp.Code, resp.Body.String())

	var body struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &body))
	suite.token = body.Token
	suite.userID = body.User.ID
}

func (suite *APITestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *APITestSuite) request(method, path string, payload any, token string) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(suite.T(), err)
		body = bytes.NewBuffer(data)
	} else {
		body = new(bytes.Buffer)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *APITestSuite) createExpense(amount string, category, date string) string {
	resp := suite.request("POST", "/api/expenses", gin.H{
		"amount":   amount,
		"category": category,
		"date":     date,
	}, suite.token)
	require.Equal(suite.T(), http.StatusCreated, resp.Code, resp.Body.String())

	var entry models.Entry
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &entry))
	return entry.ID
}

func (suite *APITestSuite) TestRegisterValidation() {
	tests := []struct {
		name    string
		payload gin.H
	}{
		{"short name", gin.H{"name": "a", "email": "x@example.com", "password": "secret123"}},
		{"bad email", gin.H{"name": "Valid Name", "email": "not-an-email", "password": "secret123"}},
		{"short password", gin.H{"name": "Valid Name", "email": "x@example.com", "password": "abc"}},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			resp := suite.request("POST", "/api/users/register", tt.payload, "")
			assert.Equal(suite.T(), http.StatusBadRequest, resp.Code)
		})
	}
}

func (suite *APITestSuite) TestRegisterDuplicateEmail() {
	resp := suite.request("POST", "/api/users/register", gin.H{
		"name":     "Someone Else",
		"email":    "Test@Example.com", // normalized to the existing address
		"password": "secret123",
	}, "")
	require.Equal(suite.T(), http.StatusBadRequest, resp.Code)
	assert.Contains(suite.T(), resp.Body.String(), "Email already registered")
}

func (suite *APITestSuite) TestLogin() {
	resp := suite.request("POST", "/api/users/login", gin.H{
		"email":    "test@example.com",
		"password": "secret123",
	}, "")
	require.Equal(suite.T(), http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &body))
	assert.NotEmpty(suite.T(), body.Token)
}

func (suite *APITestSuite) TestLoginWrongPassword() {
	resp := suite.request("POST", "/api/users/login", gin.H{
		"email":    "test@example.com",
		"password": "wrong",
	}, "")
	require.Equal(suite.T(), http.StatusUnauthorized, resp.Code)
	assert.Contains(suite.T(), resp.Body.String(), "Invalid credentials")
}

func (suite *APITestSuite) TestLoginUnknownEmailSameError() {
	resp := suite.request("POST", "/api/users/login", gin.H{
		"email":    "nobody@example.com",
		"password": "secret123",
	}, "")
	require.Equal(suite.T(), http.StatusUnauthorized, resp.Code)
	assert.Contains(suite.T(), resp.Body.String(), "Invalid credentials",
		"unknown email and wrong password must be indistinguishable")
}

func (suite *APITestSuite) TestAuthRequired() {
	for _, path := range []string{"/api/expenses", "/api/recurring", "/api/notifications", "/api/users/profile"} {
		resp := suite.request("GET", path, nil, "")
		assert.Equal(suite.T(), http.StatusUnauthorized, resp.Code, path)
	}

	resp := suite.request("GET", "/api/expenses", nil, "garbage-token")
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.Code)
}

func (suite *APITestSuite) TestCreateAndGetExpense() {
	id := suite.createExpense("12.50", "Food", "2024-03-05")

	resp := suite.request("GET", "/api/expenses/"+id, nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code)

	var entry models.Entry
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &entry))
	assert.Equal(suite.T(), "12.5", entry.Amount.String())
	assert.Equal(suite.T(), "Food", entry.Category)
	assert.Equal(suite.T(), models.KindExpense, entry.Kind)
	assert.Equal(suite.T(), models.DefaultPaymentMethod, entry.PaymentMethod)
}

func (suite *APITestSuite) TestCreateExpenseRejectsBadCategory() {
	resp := suite.request("POST", "/api/expenses", gin.H{
		"amount":   "10",
		"category": "Nonsense",
	}, suite.token)
	require.Equal(suite.T(), http.StatusBadRequest, resp.Code)
	assert.Contains(suite.T(), resp.Body.String(), "category")
}

func (suite *APITestSuite) TestListExpensesPagination() {
	for i := 1; i <= 5; i++ {
		suite.createExpense(fmt.Sprintf("%d", i*10), "Food", fmt.Sprintf("2024-03-0%d", i))
	}

	resp := suite.request("GET", "/api/expenses?limit=2&page=1", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code)

	var body struct {
		Expenses   []models.Entry `json:"expenses"`
		Total      int            `json:"total"`
		Page       int            `json:"page"`
		TotalPages int            `json:"total_pages"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(suite.T(), 5, body.Total)
	assert.Equal(suite.T(), 3, body.TotalPages)
	require.Len(suite.T(), body.Expenses, 2)
	// Newest first by default.
	assert.Equal(suite.T(), "50", body.Expenses[0].Amount.String())
}

func (suite *APITestSuite) TestUpdateExpense() {
	id := suite.createExpense("12.50", "Food", "2024-03-05")

	resp := suite.request("PATCH", "/api/expenses/"+id, gin.H{
		"amount":   "20",
		"category": "Entertainment",
	}, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code, resp.Body.String())

	var entry models.Entry
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &entry))
	assert.Equal(suite.T(), "20", entry.Amount.String())
	assert.Equal(suite.T(), "Entertainment", entry.Category)
}

func (suite *APITestSuite) TestUpdateExpenseRejectsUnknownField() {
	id := suite.createExpense("12.50", "Food", "2024-03-05")

	resp := suite.request("PATCH", "/api/expenses/"+id, gin.H{
		"user_id": "someone-else",
	}, suite.token)
	require.Equal(suite.T(), http.StatusBadRequest, resp.Code)
	assert.Contains(suite.T(), resp.Body.String(), "Invalid updates")
}

func (suite *APITestSuite) TestDeleteExpense() {
	id := suite.createExpense("12.50", "Food", "2024-03-05")

	resp := suite.request("DELETE", "/api/expenses/"+id, nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code)

	resp = suite.request("GET", "/api/expenses/"+id, nil, suite.token)
	assert.Equal(suite.T(), http.StatusNotFound, resp.Code)
}

func (suite *APITestSuite) TestOwnerScoping() {
	id := suite.createExpense("12.50", "Food", "2024-03-05")

	// Second account must not see the first account's entry.
	resp := suite.request("POST", "/api/users/register", gin.H{
		"name":     "Other User",
		"email":    "other@example.com",
		"password": "secret123",
	}, "")
	require.Equal(suite.T(), http.StatusCreated, resp.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &body))

	resp = suite.request("GET", "/api/expenses/"+id, nil, body.Token)
	assert.Equal(suite.T(), http.StatusNotFound, resp.Code, "foreign entries must look missing, not forbidden")

	resp = suite.request("DELETE", "/api/expenses/"+id, nil, body.Token)
	assert.Equal(suite.T(), http.StatusNotFound, resp.Code)
}

func (suite *APITestSuite) TestMonthlyStats() {
	suite.createExpense("30", "Food", "2024-03-05")
	suite.createExpense("20", "Transportation", "2024-03-10")
	// Outside the month.
	suite.createExpense("99", "Food", "2024-04-01")

	resp := suite.request("POST", "/api/expenses", gin.H{
		"type":     "income",
		"amount":   "1000",
		"category": "Salary",
		"date":     "2024-03-01",
	}, suite.token)
	require.Equal(suite.T(), http.StatusCreated, resp.Code)

	resp = suite.request("GET", "/api/expenses/stats?year=2024&month=3", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Month         int             `json:"month"`
		Year          int             `json:"year"`
		TotalExpenses decimal.Decimal `json:"total_expenses"`
		TotalIncome   decimal.Decimal `json:"total_income"`
		NetIncome     decimal.Decimal `json:"net_income"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(suite.T(), 3, body.Month)
	assert.Equal(suite.T(), "50", body.TotalExpenses.String())
	assert.Equal(suite.T(), "1000", body.TotalIncome.String())
	assert.Equal(suite.T(), "950", body.NetIncome.String())
}

func (suite *APITestSuite) TestWeeklyStatsWindow() {
	suite.createExpense("20", "Food", "2024-03-04")
	suite.createExpense("15", "Food", "2024-03-10")
	// Outside the window.
	suite.createExpense("99", "Food", "2024-03-11")

	resp := suite.request("GET", "/api/expenses/stats/week?week_start=2024-03-04&week_end=2024-03-10", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		TotalExpenses decimal.Decimal `json:"total_expenses"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(suite.T(), "35", body.TotalExpenses.String(),
		"both window boundaries are inclusive")
}

func (suite *APITestSuite) TestTimelineStats() {
	suite.createExpense("10", "Food", "2024-01-15")
	suite.createExpense("20", "Food", "2024-02-15")

	resp := suite.request("GET", "/api/expenses/stats/timeline?period=year&year=2024", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Timeline []struct {
			Year  int             `json:"year"`
			Month *int            `json:"month"`
			Total decimal.Decimal `json:"total"`
			Count int             `json:"count"`
		} `json:"timeline"`
	}
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(suite.T(), body.Timeline, 2)
	require.NotNil(suite.T(), body.Timeline[0].Month)
	assert.Equal(suite.T(), 1, *body.Timeline[0].Month)
	assert.Equal(suite.T(), "10", body.Timeline[0].Total.String())
}

func (suite *APITestSuite) TestTimelineStatsRejectsBadPeriod() {
	resp := suite.request("GET", "/api/expenses/stats/timeline?period=decade", nil, suite.token)
	assert.Equal(suite.T(), http.StatusBadRequest, resp.Code)
}

func (suite *APITestSuite) TestRecurringLifecycle() {
	resp := suite.request("POST", "/api/recurring", gin.H{
		"amount":     "9.99",
		"category":   "Entertainment",
		"frequency":  "monthly",
		"start_date": "2024-03-01",
	}, suite.token)
	require.Equal(suite.T(), http.StatusCreated, resp.Code, resp.Body.String())

	var rule models.RecurringRule
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &rule))
	assert.True(suite.T(), rule.Active)
	assert.Equal(suite.T(), 1, rule.Interval)
	assert.True(suite.T(), rule.NextOccurrence.Equal(rule.StartDate),
		"first occurrence defaults to the start date")

	resp = suite.request("GET", "/api/recurring", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	var rules []models.RecurringRule
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &rules))
	assert.Len(suite.T(), rules, 1)

	// Deactivate via PUT.
	active := false
	resp = suite.request("PUT", "/api/recurring/"+rule.ID, gin.H{
		"amount":    "9.99",
		"category":  "Entertainment",
		"frequency": "monthly",
		"active":    active,
	}, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code, resp.Body.String())

	var updated models.RecurringRule
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.False(suite.T(), updated.Active)
	assert.True(suite.T(), updated.NextOccurrence.Equal(rule.NextOccurrence),
		"omitting schedule fields preserves the stored schedule")

	resp = suite.request("DELETE", "/api/recurring/"+rule.ID, nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code)

	resp = suite.request("GET", "/api/recurring/"+rule.ID, nil, suite.token)
	assert.Equal(suite.T(), http.StatusNotFound, resp.Code)
}

func (suite *APITestSuite) TestRecurringRejectsBadFrequency() {
	resp := suite.request("POST", "/api/recurring", gin.H{
		"amount":     "9.99",
		"category":   "Entertainment",
		"frequency":  "fortnightly",
		"start_date": "2024-03-01",
	}, suite.token)
	require.Equal(suite.T(), http.StatusBadRequest, resp.Code)
	assert.Contains(suite.T(), resp.Body.String(), "frequency")
}

func (suite *APITestSuite) TestProfileUpdate() {
	resp := suite.request("PATCH", "/api/users/profile", gin.H{
		"name":           "Renamed",
		"monthly_budget": "1500",
	}, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code, resp.Body.String())

	var user models.User
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &user))
	assert.Equal(suite.T(), "Renamed", user.Name)
	assert.Equal(suite.T(), "1500", user.MonthlyBudget.String())
}

func (suite *APITestSuite) TestProfileUpdateRejectsUnknownField() {
	resp := suite.request("PATCH", "/api/users/profile", gin.H{
		"email": "new@example.com",
	}, suite.token)
	require.Equal(suite.T(), http.StatusBadRequest, resp.Code)
	assert.Contains(suite.T(), resp.Body.String(), "Invalid updates")
}

func (suite *APITestSuite) TestPasswordUpdate() {
	resp := suite.request("PATCH", "/api/users/password", gin.H{
		"current_password": "wrong",
		"new_password":     "newsecret",
	}, suite.token)
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.Code)

	resp = suite.request("PATCH", "/api/users/password", gin.H{
		"current_password": "secret123",
		"new_password":     "newsecret",
	}, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code, resp.Body.String())

	// Old password no longer works.
	resp = suite.request("POST", "/api/users/login", gin.H{
		"email":    "test@example.com",
		"password": "secret123",
	}, "")
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.Code)

	resp = suite.request("POST", "/api/users/login", gin.H{
		"email":    "test@example.com",
		"password": "newsecret",
	}, "")
	assert.Equal(suite.T(), http.StatusOK, resp.Code)
}

func (suite *APITestSuite) TestForgotAndResetPassword() {
	resp := suite.request("POST", "/api/auth/forgot-password", gin.H{
		"email": "test@example.com",
	}, "")
	require.Equal(suite.T(), http.StatusOK, resp.Code)
	require.Len(suite.T(), suite.mailer.to, 1)
	assert.Equal(suite.T(), "test@example.com", suite.mailer.to[0])

	// The mail body carries the reset link; pull the token off it.
	body := suite.mailer.body[0]
	idx := bytes.LastIndexByte([]byte(body), '=')
	require.Greater(suite.T(), idx, 0)
	token := body[idx+1:]

	resp = suite.request("POST", "/api/auth/reset-password", gin.H{
		"token":        token,
		"new_password": "resetsecret",
	}, "")
	require.Equal(suite.T(), http.StatusOK, resp.Code, resp.Body.String())

	resp = suite.request("POST", "/api/users/login", gin.H{
		"email":    "test@example.com",
		"password": "resetsecret",
	}, "")
	assert.Equal(suite.T(), http.StatusOK, resp.Code)

	// Token is single use.
	resp = suite.request("POST", "/api/auth/reset-password", gin.H{
		"token":        token,
		"new_password": "again",
	}, "")
	assert.Equal(suite.T(), http.StatusBadRequest, resp.Code)
}

func (suite *APITestSuite) TestForgotPasswordUnknownEmail() {
	resp := suite.request("POST", "/api/auth/forgot-password", gin.H{
		"email": "nobody@example.com",
	}, "")
	require.Equal(suite.T(), http.StatusOK, resp.Code,
		"unknown addresses get the same response as known ones")
	assert.Empty(suite.T(), suite.mailer.to)
}

func (suite *APITestSuite) TestNotifications() {
	require.NoError(suite.T(), suite.db.CreateNotification(&models.Notification{
		ID:      uuid.New().String(),
		UserID:  suite.userID,
		Title:   "Budget alert",
		Message: "You are close to your monthly budget.",
		Date:    time.Now().UTC(),
	}))

	resp := suite.request("GET", "/api/notifications", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code)

	var notifications []models.Notification
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &notifications))
	require.Len(suite.T(), notifications, 1)
	assert.False(suite.T(), notifications[0].Read)

	resp = suite.request("PATCH", "/api/notifications/"+notifications[0].ID+"/read", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, resp.Code)

	resp = suite.request("GET", "/api/notifications", nil, suite.token)
	require.NoError(suite.T(), json.Unmarshal(resp.Body.Bytes(), &notifications))
	assert.True(suite.T(), notifications[0].Read)
}

func (suite *APITestSuite) TestCoachWithoutKey() {
	resp := suite.request("POST", "/api/coach", gin.H{
		"user_data":       gin.H{"food_budget": "200"},
		"recent_expenses": gin.H{"food": "150", "total": "400"},
	}, suite.token)
	require.Equal(suite.T(), http.StatusInternalServerError, resp.Code)
	assert.Contains(suite.T(), resp.Body.String(), "OpenAI API key not configured")
}

func (suite *APITestSuite) TestCoachMissingFields() {
	resp := suite.request("POST", "/api/coach", gin.H{
		"user_data":       gin.H{},
		"recent_expenses": gin.H{"food": "150"},
	}, suite.token)
	require.Equal(suite.T(), http.StatusBadRequest, resp.Code)
	assert.Contains(suite.T(), resp.Body.String(), "Missing required")
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
