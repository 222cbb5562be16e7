package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var validBudgetTypes = map[string]bool{"weekly": true, "monthly": true}

// defaultBudget is what a user without a budgets row is treated as having.
func defaultBudget() budget {
	return budget{BudgetType: "weekly"}
}

// loadBudget returns the caller's budget (defaults when unset) and expenses,
// newest first.
func (h *Handler) loadBudget(ctx context.Context, userID int) (budget, []expense, error) {
	b, _, expenses, err := h.loadBudgetState(ctx, userID)
	return b, expenses, err
}

// loadBudgetState is loadBudget plus whether a budgets row exists.
func (h *Handler) loadBudgetState(ctx context.Context, userID int) (budget, bool, []expense, error) {
	args := pgx.NamedArgs{"userID": userID}

	found := true
	b, err := queryOne[budget](h.db, ctx, "SELECT * FROM budgets WHERE user_id = @userID", args)
	if errors.Is(err, pgx.ErrNoRows) {
		b, found = defaultBudget(), false
	} else if err != nil {
		return budget{}, false, nil, err
	}

	expenses, err := queryMany[expense](h.db, ctx,
		"SELECT * FROM expenses WHERE user_id = @userID ORDER BY date DESC", args)
	if err != nil {
		return budget{}, false, nil, err
	}
	return b, found, expenses, nil
}

// getBudget returns the budget and all expenses.
// GET /api/budget-tracker. 404 when the user has neither.
func (h *Handler) getBudget(c *gin.Context) {
	userID := c.GetInt("user_id")

	b, found, expenses, err := h.loadBudgetState(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch budget")
		return
	}
	if !found && len(expenses) == 0 {
		apiError(c, http.StatusNotFound, "budget not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"budgetAmount": b.BudgetAmount,
		"budgetType":   b.BudgetType,
		"expenses":     expenses,
	})
}

// setBudget creates or replaces the caller's budget.
// POST /api/budget-tracker/set-budget. Body: { budgetAmount, budgetType }.
func (h *Handler) setBudget(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		BudgetAmount flexFloat `json:"budgetAmount"`
		BudgetType   string    `json:"budgetType"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.BudgetAmount <= 0 {
		apiError(c, http.StatusBadRequest, "budgetAmount must be positive")
		return
	}
	if !validBudgetTypes[body.BudgetType] {
		apiError(c, http.StatusBadRequest, "budgetType must be one of: weekly, monthly")
		return
	}

	b, err := queryOne[budget](h.db, c,
		`INSERT INTO budgets (user_id, budget_amount, budget_type)
		 VALUES (@userID, @amount, @type)
		 ON CONFLICT (user_id) DO UPDATE SET
			budget_amount = EXCLUDED.budget_amount,
			budget_type   = EXCLUDED.budget_type,
			updated_at    = now()
		 RETURNING *`,
		pgx.NamedArgs{"userID": userID, "amount": float64(body.BudgetAmount), "type": body.BudgetType})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to set budget")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Budget updated successfully", "budget": b})
}

// addExpense records an expense dated now.
// POST /api/budget-tracker/add-expense. Body: { amount, description, category }.
func (h *Handler) addExpense(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Amount      flexFloat `json:"amount"`
		Description string    `json:"description"`
		Category    string    `json:"category"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Amount <= 0 {
		apiError(c, http.StatusBadRequest, "amount must be positive")
		return
	}
	body.Description = strings.TrimSpace(body.Description)
	body.Category = strings.TrimSpace(body.Category)
	if body.Description == "" || body.Category == "" {
		apiError(c, http.StatusBadRequest, "description and category are required")
		return
	}

	e, err := queryOne[expense](h.db, c,
		`INSERT INTO expenses (id, user_id, amount, description, category, date)
		 VALUES (@id, @userID, @amount, @description, @category, now())
		 RETURNING *`,
		pgx.NamedArgs{
			"id": uuid.NewString(), "userID": userID, "amount": float64(body.Amount),
			"description": body.Description, "category": body.Category,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to add expense")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Expense added successfully", "expense": e})
}

// deleteExpense removes one expense and returns the rest.
// DELETE /api/budget-tracker/delete-expense. Body: { expenseId }.
func (h *Handler) deleteExpense(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		ExpenseID string `json:"expenseId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ExpenseID == "" {
		apiError(c, http.StatusBadRequest, "expenseId is required")
		return
	}
	id, err := uuid.Parse(body.ExpenseID)
	if err != nil {
		apiError(c, http.StatusBadRequest, "expenseId must be a valid id")
		return
	}

	result, err := h.db.Exec(c,
		"DELETE FROM expenses WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id.String(), "userID": userID})
	if err != nil {
		log.Printf("[deleteExpense] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to delete expense")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "expense not found")
		return
	}

	_, remaining, err := h.loadBudget(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch expenses")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully", "remaining": remaining})
}

// periodStart returns midnight UTC on the first day of the budget period
// containing now: Monday for weekly budgets, the 1st for monthly ones.
func periodStart(budgetType string, now time.Time) time.Time {
	if budgetType == "monthly" {
		y, m, _ := now.UTC().Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	}
	return mondayOf(now)
}

// getBudgetSummary reports spending in the current budget period.
// GET /api/budget-tracker/summary.
func (h *Handler) getBudgetSummary(c *gin.Context) {
	userID := c.GetInt("user_id")

	b, _, err := h.loadBudget(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch budget")
		return
	}
	start := periodStart(b.BudgetType, time.Now())

	var spent float64
	err = h.db.QueryRow(c,
		`SELECT COALESCE(SUM(amount), 0) FROM expenses
		 WHERE user_id = @userID AND date >= @start`,
		pgx.NamedArgs{"userID": userID, "start": start.Format(time.RFC3339)}).Scan(&spent)
	if err != nil {
		log.Printf("[getBudgetSummary] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to compute spending")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"budgetAmount": b.BudgetAmount,
		"budgetType":   b.BudgetType,
		"periodStart":  DateOnly{start},
		"spent":        spent,
		"remaining":    b.BudgetAmount - spent,
	})
}
