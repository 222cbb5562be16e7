package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// mealOperationHeader set to "add" appends a single meal instead of
// replacing the whole day.
const mealOperationHeader = "X-Meal-Operation"

// resolveDay parses an optional date, defaulting to today.
func resolveDay(s string) (DateOnly, error) {
	if s == "" {
		return today(), nil
	}
	return parseDay(s)
}

// validateLoggedMeals returns a client-facing message for the first bad meal.
func validateLoggedMeals(meals []loggedMeal) string {
	for i, m := range meals {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Sprintf("meals[%d]: name is required", i)
		}
		if m.Calories < 0 {
			return fmt.Sprintf("meals[%d]: calories must not be negative", i)
		}
	}
	return ""
}

// isAppend reports whether the request asks to append exactly one meal.
func isAppend(c *gin.Context, meals []loggedMeal) bool {
	return strings.EqualFold(c.GetHeader(mealOperationHeader), "add") && len(meals) == 1
}

func loadDayMeals(ctx context.Context, db querier, userID int, day DateOnly) ([]loggedMeal, error) {
	return queryMany[loggedMeal](db, ctx,
		`SELECT name, calories, type FROM meal_log_entries
		 WHERE user_id = @userID AND date = @date
		 ORDER BY position`,
		pgx.NamedArgs{"userID": userID, "date": day.String()})
}

// getMealLog returns the meals logged on a day, in the order they were logged.
// GET /api/meal-logger/get-logs?date=YYYY-MM-DD (defaults to today).
func (h *Handler) getMealLog(c *gin.Context) {
	userID := c.GetInt("user_id")
	day, err := resolveDay(c.Query("date"))
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	meals, err := loadDayMeals(c, h.db, userID, day)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meal logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals})
}

// logMeal appends one meal or replaces the day's list.
// POST /api/meal-logger/log-meal. Body: { "date"?, "meals": [{name, calories, type}] }.
func (h *Handler) logMeal(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Date  string       `json:"date"`
		Meals []loggedMeal `json:"meals"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Meals == nil {
		apiError(c, http.StatusBadRequest, "meals is required")
		return
	}
	if msg := validateLoggedMeals(body.Meals); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	day, err := resolveDay(body.Date)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	var created bool
	if isAppend(c, body.Meals) {
		created, err = h.appendMeal(c, userID, day, body.Meals[0])
	} else {
		created, err = h.replaceMeals(c, userID, day, body.Meals)
	}
	if err != nil {
		log.Printf("[logMeal] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to log meal")
		return
	}

	msg := "Meal log updated"
	if created {
		msg = "Meal log created"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// mealLogTx is the part of pgx.Tx the meal-log writers use.
type mealLogTx interface {
	querier
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// lockMealLog serializes meal-log writes for one user until the transaction
// ends. Positions are derived from the current rows, so two writers must not
// read the same day at once.
func lockMealLog(ctx context.Context, tx mealLogTx, userID int) error {
	if _, err := tx.Exec(ctx,
		"SELECT pg_advisory_xact_lock(hashtext('meal_log'), @userID)",
		pgx.NamedArgs{"userID": userID}); err != nil {
		return fmt.Errorf("lock meal log: %w", err)
	}
	return nil
}

// appendMeal adds m after the day's last meal. It reports whether the day
// had no meals before.
func (h *Handler) appendMeal(ctx context.Context, userID int, day DateOnly, m loggedMeal) (created bool, err error) {
	err = pgx.BeginFunc(ctx, h.db, func(tx pgx.Tx) error {
		created, err = appendMealTx(ctx, tx, userID, day, m)
		return err
	})
	return created, err
}

func appendMealTx(ctx context.Context, tx mealLogTx, userID int, day DateOnly, m loggedMeal) (bool, error) {
	if err := lockMealLog(ctx, tx, userID); err != nil {
		return false, err
	}

	var position int
	err := tx.QueryRow(ctx,
		`INSERT INTO meal_log_entries (user_id, date, position, name, calories, type)
		 SELECT @userID, @date::date, COALESCE(MAX(position) + 1, 0), @name, @calories, @type
		 FROM meal_log_entries WHERE user_id = @userID AND date = @date::date
		 RETURNING position`,
		pgx.NamedArgs{
			"userID": userID, "date": day.String(),
			"name": m.Name, "calories": m.Calories, "type": m.Type,
		}).Scan(&position)
	if err != nil {
		return false, fmt.Errorf("append meal: %w", err)
	}
	return position == 0, nil
}

// replaceMeals swaps the day's list for meals in one transaction.
func (h *Handler) replaceMeals(ctx context.Context, userID int, day DateOnly, meals []loggedMeal) (created bool, err error) {
	err = pgx.BeginFunc(ctx, h.db, func(tx pgx.Tx) error {
		created, err = replaceMealsTx(ctx, tx, userID, day, meals)
		return err
	})
	return created, err
}

func replaceMealsTx(ctx context.Context, tx mealLogTx, userID int, day DateOnly, meals []loggedMeal) (bool, error) {
	if err := lockMealLog(ctx, tx, userID); err != nil {
		return false, err
	}

	tag, err := tx.Exec(ctx,
		"DELETE FROM meal_log_entries WHERE user_id = @userID AND date = @date",
		pgx.NamedArgs{"userID": userID, "date": day.String()})
	if err != nil {
		return false, fmt.Errorf("clear day: %w", err)
	}

	batch := &pgx.Batch{}
	for i, m := range meals {
		batch.Queue(
			`INSERT INTO meal_log_entries (user_id, date, position, name, calories, type)
			 VALUES (@userID, @date, @position, @name, @calories, @type)`,
			pgx.NamedArgs{
				"userID": userID, "date": day.String(), "position": i,
				"name": m.Name, "calories": m.Calories, "type": m.Type,
			})
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return false, fmt.Errorf("insert meals: %w", err)
		}
	}
	return tag.RowsAffected() == 0, nil
}

var errMealIndexOutOfRange = errors.New("meal index out of range")

// deleteLoggedMeal removes the meal at mealIndex and closes the gap in positions.
// POST /api/meal-logger/delete-meal. Body: { "mealIndex": n, "date"? }.
func (h *Handler) deleteLoggedMeal(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		MealIndex *int   `json:"mealIndex"`
		Date      string `json:"date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.MealIndex == nil {
		apiError(c, http.StatusBadRequest, "mealIndex is required")
		return
	}
	if *body.MealIndex < 0 {
		apiError(c, http.StatusBadRequest, "mealIndex must not be negative")
		return
	}
	day, err := resolveDay(body.Date)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	meals, err := h.removeMealAt(c, userID, day, *body.MealIndex)
	if err != nil {
		if errors.Is(err, errMealIndexOutOfRange) {
			apiError(c, http.StatusNotFound, "meal not found")
			return
		}
		log.Printf("[deleteLoggedMeal] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to delete meal")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meal deleted", "meals": meals})
}

func (h *Handler) removeMealAt(ctx context.Context, userID int, day DateOnly, index int) (meals []loggedMeal, err error) {
	err = pgx.BeginFunc(ctx, h.db, func(tx pgx.Tx) error {
		meals, err = removeMealAtTx(ctx, tx, userID, day, index)
		return err
	})
	return meals, err
}

func removeMealAtTx(ctx context.Context, tx mealLogTx, userID int, day DateOnly, index int) ([]loggedMeal, error) {
	if err := lockMealLog(ctx, tx, userID); err != nil {
		return nil, err
	}

	args := pgx.NamedArgs{"userID": userID, "date": day.String(), "index": index}
	var position int
	err := tx.QueryRow(ctx,
		`DELETE FROM meal_log_entries WHERE id = (
			SELECT id FROM meal_log_entries
			WHERE user_id = @userID AND date = @date
			ORDER BY position OFFSET @index LIMIT 1)
		 RETURNING position`, args).Scan(&position)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errMealIndexOutOfRange
	}
	if err != nil {
		return nil, fmt.Errorf("delete meal: %w", err)
	}

	args["position"] = position
	if _, err := tx.Exec(ctx,
		`UPDATE meal_log_entries SET position = position - 1
		 WHERE user_id = @userID AND date = @date AND position > @position`, args); err != nil {
		return nil, fmt.Errorf("renumber: %w", err)
	}

	return loadDayMeals(ctx, tx, userID, day)
}

// clearMealLog removes every meal logged on a day.
// POST /api/meal-logger/clear-meals. Body: { "date"? }.
func (h *Handler) clearMealLog(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Date string `json:"date"`
	}
	// An empty body clears today.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			apiError(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	day, err := resolveDay(body.Date)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	if _, err := h.db.Exec(c,
		"DELETE FROM meal_log_entries WHERE user_id = @userID AND date = @date",
		pgx.NamedArgs{"userID": userID, "date": day.String()}); err != nil {
		log.Printf("[clearMealLog] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to clear meals")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All meals cleared"})
}

// userTargetCalories returns the saved target, or 0 when the user has none.
func (h *Handler) userTargetCalories(ctx context.Context, userID int) (float64, error) {
	var target *float64
	err := h.db.QueryRow(ctx,
		"SELECT target_calories FROM users WHERE id = @userID",
		pgx.NamedArgs{"userID": userID}).Scan(&target)
	if err != nil {
		return 0, err
	}
	return valueOr(target, 0), nil
}

// getDailySummary returns the day's meals with consumed and remaining calories.
// GET /api/meal-logger/summary?date=YYYY-MM-DD (defaults to today).
func (h *Handler) getDailySummary(c *gin.Context) {
	userID := c.GetInt("user_id")
	day, err := resolveDay(c.Query("date"))
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	meals, err := loadDayMeals(c, h.db, userID, day)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meals")
		return
	}
	target, err := h.userTargetCalories(c, userID)
	if err != nil {
		log.Printf("[getDailySummary] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to fetch target calories")
		return
	}

	consumed := sumCalories(meals)
	c.JSON(http.StatusOK, gin.H{
		"date":             day,
		"targetCalories":   target,
		"caloriesConsumed": consumed,
		"caloriesLeft":     target - consumed,
		"meals":            meals,
	})
}

func sumCalories(meals []loggedMeal) float64 {
	var total float64
	for _, m := range meals {
		total += m.Calories
	}
	return total
}

// weekDayTotal is one aggregated row from the week query.
type weekDayTotal struct {
	Date     DateOnly `db:"date"`
	Calories float64  `db:"calories"`
}

// buildWeek lays totals over the seven days starting at weekStart.
// Days without a row are included with HasData false.
func buildWeek(weekStart DateOnly, target float64, totals []weekDayTotal) []daySummary {
	byDate := make(map[string]float64, len(totals))
	for _, t := range totals {
		byDate[t.Date.String()] = t.Calories
	}

	week := make([]daySummary, 7)
	for i := range week {
		d := DateOnly{weekStart.AddDate(0, 0, i)}
		day := daySummary{Date: d, TargetCalories: target}
		if cals, ok := byDate[d.String()]; ok {
			day.HasData = true
			day.CaloriesConsumed = cals
		}
		day.CaloriesLeft = target - day.CaloriesConsumed
		week[i] = day
	}
	return week
}

// getWeekSummary returns per-day totals for the Mon-Sun week containing
// week_start. GET /api/meal-logger/week-summary?week_start=YYYY-MM-DD
// (defaults to the current week).
func (h *Handler) getWeekSummary(c *gin.Context) {
	userID := c.GetInt("user_id")

	weekStart := DateOnly{currentMonday()}
	if s := c.Query("week_start"); s != "" {
		d, err := parseDay(s)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid week_start, expected YYYY-MM-DD")
			return
		}
		weekStart = DateOnly{mondayOf(d.Time)}
	}
	weekEnd := DateOnly{weekStart.AddDate(0, 0, 6)}

	target, err := h.userTargetCalories(c, userID)
	if err != nil {
		log.Printf("[getWeekSummary] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to fetch target calories")
		return
	}

	totals, err := queryMany[weekDayTotal](h.db, c,
		`SELECT date, SUM(calories) AS calories
		 FROM meal_log_entries
		 WHERE user_id = @userID AND date >= @weekStart AND date <= @weekEnd
		 GROUP BY date`,
		pgx.NamedArgs{"userID": userID, "weekStart": weekStart.String(), "weekEnd": weekEnd.String()})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch week data")
		return
	}

	c.JSON(http.StatusOK, buildWeek(weekStart, target, totals))
}
