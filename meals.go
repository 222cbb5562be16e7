package main

import (
	"errors"
	"log"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// Personalization defaults for users who have not set a budget or target.
const (
	defaultBudgetAmount   = 140
	defaultTargetCalories = 2000
)

// budgetTiers lists budget categories cheapest first. A user sees meals in
// their own tier and every cheaper one.
var budgetTiers = []string{"low", "medium", "high"}

var validCalorieCategories = map[string]bool{"low": true, "moderate": true, "high": true}

// budgetCategory converts a weekly or monthly budget to a daily spend tier.
func budgetCategory(amount float64, budgetType string) string {
	daily := amount / 30
	if budgetType == "weekly" {
		daily = amount / 7
	}
	switch {
	case daily <= 10:
		return "low"
	case daily <= 20:
		return "medium"
	default:
		return "high"
	}
}

// calorieCategory buckets a daily calorie target.
func calorieCategory(targetCalories float64) string {
	switch {
	case targetCalories <= 1800:
		return "low"
	case targetCalories <= 2500:
		return "moderate"
	default:
		return "high"
	}
}

// affordableTiers returns every budget tier up to and including category.
func affordableTiers(category string) []string {
	for i, t := range budgetTiers {
		if t == category {
			return budgetTiers[:i+1]
		}
	}
	return budgetTiers[:1]
}

// listMeals returns the whole catalog. GET /api/meals (public).
func (h *Handler) listMeals(c *gin.Context) {
	meals, err := queryMany[meal](h.db, c, "SELECT * FROM meals ORDER BY name", nil)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meals")
		return
	}
	c.JSON(http.StatusOK, meals)
}

// availableMeals is listMeals wrapped for the meal logger.
// GET /api/meal-logger/available-meals (public).
func (h *Handler) availableMeals(c *gin.Context) {
	meals, err := queryMany[meal](h.db, c, "SELECT * FROM meals ORDER BY name", nil)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meals")
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals})
}

type createMealRequest struct {
	Name            string    `json:"name"`
	Ingredients     []string  `json:"ingredients"`
	TotalCalories   flexFloat `json:"totalCalories"`
	TotalProtein    flexFloat `json:"totalProtein"`
	TotalCarbs      flexFloat `json:"totalCarbs"`
	TotalFats       flexFloat `json:"totalFats"`
	EstimatedCost   flexFloat `json:"estimatedCost"`
	BudgetCategory  string    `json:"budgetCategory"`
	CalorieCategory string    `json:"calorieCategory"`
}

func (r createMealRequest) validate() string {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return "name is required"
	case r.TotalCalories < 0 || r.TotalProtein < 0 || r.TotalCarbs < 0 || r.TotalFats < 0 || r.EstimatedCost < 0:
		return "nutrition values and estimatedCost must not be negative"
	case !slices.Contains(budgetTiers, r.BudgetCategory):
		return "budgetCategory must be one of: low, medium, high"
	case !validCalorieCategories[r.CalorieCategory]:
		return "calorieCategory must be one of: low, moderate, high"
	}
	return ""
}

// createMeal adds a meal to the catalog. POST /api/meals and /api/meals/add (admin).
func (h *Handler) createMeal(c *gin.Context) {
	var body createMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := body.validate(); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	if body.Ingredients == nil {
		body.Ingredients = []string{}
	}

	var id int
	err := h.db.QueryRow(c,
		`INSERT INTO meals (name, ingredients, total_calories, total_protein, total_carbs,
			total_fats, estimated_cost, budget_category, calorie_category)
		 VALUES (@name, @ingredients, @calories, @protein, @carbs, @fats, @cost, @budgetCategory, @calorieCategory)
		 RETURNING id`,
		pgx.NamedArgs{
			"name": strings.TrimSpace(body.Name), "ingredients": body.Ingredients,
			"calories": float64(body.TotalCalories), "protein": float64(body.TotalProtein),
			"carbs": float64(body.TotalCarbs), "fats": float64(body.TotalFats),
			"cost": float64(body.EstimatedCost), "budgetCategory": body.BudgetCategory,
			"calorieCategory": body.CalorieCategory,
		}).Scan(&id)
	if err != nil {
		log.Printf("[createMeal] insert: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to add meal")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Meal added successfully", "mealId": id})
}

// deleteMeal removes a meal from the catalog. DELETE /api/meals/:mealId (admin).
func (h *Handler) deleteMeal(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("mealId"))
	if err != nil || id <= 0 {
		apiError(c, http.StatusBadRequest, "invalid meal id")
		return
	}

	result, err := h.db.Exec(c, "DELETE FROM meals WHERE id = @id", pgx.NamedArgs{"id": id})
	if err != nil {
		log.Printf("[deleteMeal] meal %d: %v", id, err)
		apiError(c, http.StatusInternalServerError, "failed to delete meal")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "meal not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meal deleted successfully"})
}

// personalizedMeals returns catalog meals that fit the caller's budget tier
// (or cheaper) and match their calorie category exactly.
// GET /api/personalizedMeals.
func (h *Handler) personalizedMeals(c *gin.Context) {
	userID := c.GetInt("user_id")

	b, found, _, err := h.loadBudgetState(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch budget")
		return
	}
	amount := b.BudgetAmount
	if !found || amount <= 0 {
		amount = defaultBudgetAmount
	}

	target, err := h.userTargetCalories(c, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "user not found")
			return
		}
		apiError(c, http.StatusInternalServerError, "failed to fetch target calories")
		return
	}
	if target <= 0 {
		target = defaultTargetCalories
	}

	meals, err := queryMany[meal](h.db, c,
		`SELECT * FROM meals
		 WHERE budget_category = ANY(@tiers) AND calorie_category = @calorieCategory
		 ORDER BY name`,
		pgx.NamedArgs{
			"tiers":           affordableTiers(budgetCategory(amount, b.BudgetType)),
			"calorieCategory": calorieCategory(target),
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meals")
		return
	}
	c.JSON(http.StatusOK, meals)
}

// getFavorites returns the caller's favorite meals. GET /api/favorites.
func (h *Handler) getFavorites(c *gin.Context) {
	userID := c.GetInt("user_id")

	meals, err := queryMany[meal](h.db, c,
		`SELECT m.* FROM meals m
		 JOIN favorites f ON f.meal_id = m.id
		 WHERE f.user_id = @userID
		 ORDER BY f.created_at`,
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch favorites")
		return
	}
	c.JSON(http.StatusOK, meals)
}

// bindMealID reads { "mealId": n } where n may be a number or numeric string.
// Fractional and out-of-range ids are rejected rather than truncated.
func bindMealID(c *gin.Context) (int, bool) {
	var body struct {
		MealID flexFloat `json:"mealId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.MealID <= 0 {
		apiError(c, http.StatusBadRequest, "mealId is required")
		return 0, false
	}
	id := float64(body.MealID)
	if id != math.Trunc(id) || id > math.MaxInt32 {
		apiError(c, http.StatusBadRequest, "mealId must be a whole number")
		return 0, false
	}
	return int(id), true
}

// addFavorite marks a meal as a favorite. Adding it twice is a no-op.
// POST /api/favorites/add. Body: { mealId }.
func (h *Handler) addFavorite(c *gin.Context) {
	userID := c.GetInt("user_id")
	mealID, ok := bindMealID(c)
	if !ok {
		return
	}

	// Selecting from meals turns an unknown meal into zero rows instead of an FK error.
	result, err := h.db.Exec(c,
		`INSERT INTO favorites (user_id, meal_id)
		 SELECT @userID, id FROM meals WHERE id = @mealID
		 ON CONFLICT (user_id, meal_id) DO NOTHING`,
		pgx.NamedArgs{"userID": userID, "mealID": mealID})
	if err != nil {
		log.Printf("[addFavorite] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to add favorite")
		return
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if err := h.db.QueryRow(c, "SELECT EXISTS(SELECT 1 FROM meals WHERE id = @mealID)",
			pgx.NamedArgs{"mealID": mealID}).Scan(&exists); err != nil {
			apiError(c, http.StatusInternalServerError, "failed to add favorite")
			return
		}
		if !exists {
			apiError(c, http.StatusNotFound, "meal not found")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meal added to favorites"})
}

// removeFavorite un-favorites a meal. POST /api/favorites/remove. Body: { mealId }.
func (h *Handler) removeFavorite(c *gin.Context) {
	userID := c.GetInt("user_id")
	mealID, ok := bindMealID(c)
	if !ok {
		return
	}

	if _, err := h.db.Exec(c,
		"DELETE FROM favorites WHERE user_id = @userID AND meal_id = @mealID",
		pgx.NamedArgs{"userID": userID, "mealID": mealID}); err != nil {
		log.Printf("[removeFavorite] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to remove favorite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meal removed from favorites"})
}
