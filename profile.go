package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// calculateCalories runs the caloric target engine on the posted profile.
// POST /api/calorie-calculator (public). Values come back as 2-decimal strings.
func (h *Handler) calculateCalories(c *gin.Context) {
	var in ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := computeCaloricTarget(in)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			apiError(c, http.StatusBadRequest, vErr.Error())
			return
		}
		log.Printf("[calculateCalories] %v", err)
		apiError(c, http.StatusInternalServerError, "failed to calculate calories")
		return
	}

	c.JSON(http.StatusOK, newCaloricResponse(result))
}

// saveCaloriesRequest accepts the calculator output as-is (strings) or as numbers.
type saveCaloriesRequest struct {
	BMR            *flexFloat `json:"bmr"`
	TDEE           *flexFloat `json:"tdee"`
	TargetCalories *flexFloat `json:"targetCalories"`
	ActivityLevel  *string    `json:"activityLevel"`
	Goal           *string    `json:"goal"`
}

// saveCalories stores caloric data, activity level and goal on the user.
// POST /api/save-calories.
func (h *Handler) saveCalories(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body saveCaloriesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.BMR == nil || body.TDEE == nil || body.TargetCalories == nil {
		apiError(c, http.StatusBadRequest, "bmr, tdee and targetCalories are required")
		return
	}
	if *body.BMR <= 0 || *body.TDEE <= 0 || *body.TargetCalories <= 0 {
		apiError(c, http.StatusBadRequest, "bmr, tdee and targetCalories must be positive")
		return
	}
	if msg := validateActivityAndGoal(body.ActivityLevel, body.Goal); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}

	result, err := h.db.Exec(c,
		`UPDATE users SET
			bmr = @bmr, tdee = @tdee, target_calories = @targetCalories,
			activity_level = COALESCE(@activityLevel, activity_level),
			goal = COALESCE(@goal, goal)
		 WHERE id = @userID`,
		pgx.NamedArgs{
			"userID": userID, "bmr": float64(*body.BMR), "tdee": float64(*body.TDEE),
			"targetCalories": float64(*body.TargetCalories),
			"activityLevel":  body.ActivityLevel, "goal": body.Goal,
		})
	if err != nil {
		log.Printf("[saveCalories] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to save caloric data")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "user not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Caloric data saved successfully"})
}

// saveUserData updates only activity level and goal. POST /api/save-user-data.
func (h *Handler) saveUserData(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		ActivityLevel *string `json:"activityLevel"`
		Goal          *string `json:"goal"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ActivityLevel == nil && body.Goal == nil {
		apiError(c, http.StatusBadRequest, "no fields to update")
		return
	}
	if msg := validateActivityAndGoal(body.ActivityLevel, body.Goal); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}

	_, err := h.db.Exec(c,
		`UPDATE users SET
			activity_level = COALESCE(@activityLevel, activity_level),
			goal = COALESCE(@goal, goal)
		 WHERE id = @userID`,
		pgx.NamedArgs{"userID": userID, "activityLevel": body.ActivityLevel, "goal": body.Goal})
	if err != nil {
		log.Printf("[saveUserData] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to save user data")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Data saved successfully"})
}

// validateActivityAndGoal rejects unknown enum values before they are saved.
// An unknown level would silently break later calorie calculations.
func validateActivityAndGoal(activityLevel, goal *string) string {
	if activityLevel != nil {
		if _, ok := activityMultipliers[*activityLevel]; !ok {
			return "activityLevel must be one of: sedentary, light, moderate, active, very_active"
		}
	}
	if goal != nil && !validGoals[*goal] {
		return "goal must be one of: maintain, weight_loss, weight_gain"
	}
	return ""
}

// checkAuth returns the caller's profile with caloric and budget data.
// GET /api/check-auth. Missing data is filled with defaults so the client
// never has to null-check.
func (h *Handler) checkAuth(c *gin.Context) {
	userID := c.GetInt("user_id")

	u, err := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "user not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to fetch user")
		}
		return
	}

	b, expenses, err := h.loadBudget(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch budget")
		return
	}

	caloricData := gin.H{
		"bmr":            valueOr(u.BMR, 0),
		"tdee":           valueOr(u.TDEE, 0),
		"targetCalories": valueOr(u.TargetCalories, 0),
	}
	budgetData := gin.H{
		"budgetAmount": b.BudgetAmount,
		"budgetType":   b.BudgetType,
		"expenses":     expenses,
	}

	c.JSON(http.StatusOK, gin.H{"user": gin.H{
		"id":            u.ID,
		"name":          u.Name,
		"email":         u.Email,
		"isAdmin":       u.Role == "admin",
		"activityLevel": valueOr(u.ActivityLevel, "Not specified"),
		"goal":          valueOr(u.Goal, "Not specified"),
		"caloricData":   caloricData,
		"budgetData":    budgetData,
		"budgetAmount":  b.BudgetAmount,
		"budgetType":    b.BudgetType,
		"address":       valueOr(u.Address, "Not provided"),
		"phoneNumber":   valueOr(u.PhoneNumber, "Not provided"),
	}})
}

// valueOr dereferences p, or returns fallback when p is nil.
func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
