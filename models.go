package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const dateLayout = "2006-01-02"

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format(dateLayout) + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"`+dateLayout+`"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// String formats the date for use as a query argument.
func (d DateOnly) String() string {
	return d.Time.Format(dateLayout)
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

// parseDay accepts "YYYY-MM-DD" as-is or an RFC 3339 timestamp, which is
// converted to UTC before its date is taken. The result has no time of day.
func parseDay(s string) (DateOnly, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOnly{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return DateOnly{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC 3339", s)
	}
	return DateOnly{calendarDay(t.UTC())}, nil
}

// today returns the current UTC calendar day.
func today() DateOnly {
	return DateOnly{calendarDay(time.Now().UTC())}
}

// flexFloat decodes from either a JSON number or a numeric string, so the
// decimal strings returned by the calculator can be posted back unchanged.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		// ParseFloat accepts "NaN" and "Inf", which would pass every <= 0 check.
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid number %q", s)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

/* ─── Domain structs ─────────────────────────────────────────────────── */

// user maps to the users table. Password is hidden from JSON responses.
// Caloric fields stay NULL until the user saves a calculator result.
type user struct {
	ID             int        `json:"_id"            db:"id"`
	Name           string     `json:"name"           db:"name"`
	Email          string     `json:"email"          db:"email"`
	Password       string     `json:"-"              db:"password"`
	Address        *string    `json:"address"        db:"address"`
	PhoneNumber    *string    `json:"phoneNumber"    db:"phone_number"`
	Role           string     `json:"role"           db:"role"`
	ActivityLevel  *string    `json:"activityLevel"  db:"activity_level"`
	Goal           *string    `json:"goal"           db:"goal"`
	BMR            *float64   `json:"bmr"            db:"bmr"`
	TDEE           *float64   `json:"tdee"           db:"tdee"`
	TargetCalories *float64   `json:"targetCalories" db:"target_calories"`
	CreatedAt      *time.Time `json:"createdAt"      db:"created_at"`
}

// meal maps to the meals catalog table.
type meal struct {
	ID              int        `json:"_id"             db:"id"`
	Name            string     `json:"name"            db:"name"`
	Ingredients     []string   `json:"ingredients"     db:"ingredients"`
	TotalCalories   float64    `json:"totalCalories"   db:"total_calories"`
	TotalProtein    float64    `json:"totalProtein"    db:"total_protein"`
	TotalCarbs      float64    `json:"totalCarbs"      db:"total_carbs"`
	TotalFats       float64    `json:"totalFats"       db:"total_fats"`
	EstimatedCost   float64    `json:"estimatedCost"   db:"estimated_cost"`
	BudgetCategory  string     `json:"budgetCategory"  db:"budget_category"`
	CalorieCategory string     `json:"calorieCategory" db:"calorie_category"`
	CreatedAt       *time.Time `json:"createdAt"       db:"created_at"`
}

// loggedMeal is one entry in a day's meal log as the client sees it.
type loggedMeal struct {
	Name     string  `json:"name"     db:"name"`
	Calories float64 `json:"calories" db:"calories"`
	Type     string  `json:"type"     db:"type"`
}

// budget maps to the budgets table (one row per user).
type budget struct {
	UserID       int        `json:"-"            db:"user_id"`
	BudgetAmount float64    `json:"budgetAmount" db:"budget_amount"`
	BudgetType   string     `json:"budgetType"   db:"budget_type"`
	UpdatedAt    *time.Time `json:"updatedAt"    db:"updated_at"`
}

// expense maps to the expenses table.
type expense struct {
	ID          uuid.UUID `json:"id"          db:"id"`
	UserID      int       `json:"-"           db:"user_id"`
	Amount      float64   `json:"amount"      db:"amount"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category"    db:"category"`
	Date        time.Time `json:"date"        db:"date"`
}

// weightEntry maps to weight_entries. Weight is in kilograms.
type weightEntry struct {
	ID        int        `json:"_id"       db:"id"`
	UserID    int        `json:"userId"    db:"user_id"`
	Date      DateOnly   `json:"date"      db:"date"`
	Weight    float64    `json:"weight"    db:"weight"`
	CreatedAt *time.Time `json:"createdAt" db:"created_at"`
}

// liftEntry maps to lift_entries.
type liftEntry struct {
	ID        int        `json:"_id"       db:"id"`
	UserID    int        `json:"userId"    db:"user_id"`
	LiftType  string     `json:"liftType"  db:"lift_type"`
	Weight    float64    `json:"weight"    db:"weight"`
	Reps      int        `json:"reps"      db:"reps"`
	Sets      int        `json:"sets"      db:"sets"`
	Date      DateOnly   `json:"date"      db:"date"`
	CreatedAt *time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt *time.Time `json:"updatedAt" db:"updated_at"`
}

// userLifts maps to user_lifts: the lift names a user tracks.
type userLifts struct {
	UserID         int        `json:"-"              db:"user_id"`
	AvailableLifts []string   `json:"availableLifts" db:"available_lifts"`
	SelectedLifts  []string   `json:"selectedLifts"  db:"selected_lifts"`
	CreatedAt      *time.Time `json:"createdAt"      db:"created_at"`
}

// daySummary is one day in the meal-log week summary.
type daySummary struct {
	Date             DateOnly `json:"date"`
	TargetCalories   float64  `json:"targetCalories"`
	CaloriesConsumed float64  `json:"caloriesConsumed"`
	CaloriesLeft     float64  `json:"caloriesLeft"`
	HasData          bool     `json:"hasData"`
}
