package main

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"
)

// activityMultipliers maps activity level strings to their TDEE multiplier.
// Its keys are also the valid activity levels for saved profiles.
var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// validGoals is the set of accepted goal values.
var validGoals = map[string]bool{
	"maintain":    true,
	"weight_loss": true,
	"weight_gain": true,
}

// goalOffsets holds the daily kcal adjustment per (goal, specificGoal).
// A goal without a recognized specific goal gets no offset.
var goalOffsets = map[string]map[string]float64{
	"weight_loss": {
		"mild_weight_loss":    -250,
		"weight_loss":         -500,
		"extreme_weight_loss": -1000,
	},
	"weight_gain": {
		"mild_weight_gain":    250,
		"weight_gain":         500,
		"extreme_weight_gain": 1000,
	},
}

// ProfileInput is the body of POST /api/calorie-calculator.
// Zero values count as missing.
type ProfileInput struct {
	Gender        string  `json:"gender"`
	Weight        float64 `json:"weight"` // kg
	Height        float64 `json:"height"` // cm
	Age           int     `json:"age"`
	ActivityLevel string  `json:"activityLevel"`
	Goal          string  `json:"goal"`
	SpecificGoal  string  `json:"specificGoal"`
}

// CaloricResult holds full-precision kcal/day values. Rounding happens only
// when the result is written to the wire (see newCaloricResponse).
type CaloricResult struct {
	BMR            float64
	TDEE           float64
	TargetCalories float64
}

// ValidationError reports a missing or out-of-domain profile field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// computeCaloricTarget computes BMR (Mifflin-St Jeor), TDEE and the
// goal-adjusted daily calorie target. It is pure: identical input gives
// identical output.
func computeCaloricTarget(in ProfileInput) (CaloricResult, error) {
	if err := validateProfile(in); err != nil {
		return CaloricResult{}, err
	}

	// BMR via Mifflin-St Jeor: different constant for male vs female
	bmr := 10*in.Weight + 6.25*in.Height - 5*float64(in.Age)
	if in.Gender == "male" {
		bmr += 5
	} else {
		bmr -= 161
	}

	tdee := bmr * activityMultipliers[in.ActivityLevel]

	// goalOffsets has no entry for "maintain", so specificGoal is ignored there.
	target := tdee + goalOffsets[in.Goal][in.SpecificGoal]

	return CaloricResult{BMR: bmr, TDEE: tdee, TargetCalories: target}, nil
}

func validateProfile(in ProfileInput) error {
	switch {
	case in.Gender == "":
		return &ValidationError{"gender", "is required"}
	case in.Gender != "male" && in.Gender != "female":
		return &ValidationError{"gender", "must be one of: male, female"}
	case in.Weight == 0:
		return &ValidationError{"weight", "is required"}
	case in.Weight < 0:
		return &ValidationError{"weight", "must be positive"}
	case in.Height == 0:
		return &ValidationError{"height", "is required"}
	case in.Height < 0:
		return &ValidationError{"height", "must be positive"}
	case in.Age == 0:
		return &ValidationError{"age", "is required"}
	case in.Age < 0:
		return &ValidationError{"age", "must be positive"}
	case in.ActivityLevel == "":
		return &ValidationError{"activityLevel", "is required"}
	case activityMultipliers[in.ActivityLevel] == 0:
		return &ValidationError{"activityLevel", "must be one of: sedentary, light, moderate, active, very_active"}
	case in.Goal == "":
		return &ValidationError{"goal", "is required"}
	case !validGoals[in.Goal]:
		return &ValidationError{"goal", "must be one of: maintain, weight_loss, weight_gain"}
	}
	return nil
}

// caloricResponse is the wire shape of a CaloricResult. Values are
// decimal-fixed strings ("1780.25"), which existing clients depend on.
type caloricResponse struct {
	BMR            string `json:"bmr"`
	TDEE           string `json:"tdee"`
	TargetCalories string `json:"targetCalories"`
}

func newCaloricResponse(r CaloricResult) caloricResponse {
	return caloricResponse{
		BMR:            fixed2(r.BMR),
		TDEE:           fixed2(r.TDEE),
		TargetCalories: fixed2(r.TargetCalories),
	}
}

var hundred = big.NewFloat(100)

// fixed2 formats v with two decimals, rounding exact halves away from zero
// ("1620.625" -> "1620.63") to match the client's number formatting.
// strconv breaks such ties to even. Values that are only close to a half in
// binary round by their exact value, so 1.005 stays "1.00".
func fixed2(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	x := new(big.Float).SetPrec(128).SetFloat64(v)
	x.Mul(x, hundred)

	cents, _ := x.Int(nil) // truncated toward zero
	frac := new(big.Float).SetPrec(128).Sub(x, new(big.Float).SetInt(cents))
	if frac.Abs(frac).Cmp(big.NewFloat(0.5)) >= 0 {
		cents.Add(cents, big.NewInt(int64(x.Sign())))
	}

	sign := ""
	if cents.Sign() < 0 {
		sign = "-"
		cents.Abs(cents)
	}
	whole, rem := new(big.Int).QuoRem(cents, big.NewInt(100), new(big.Int))
	return fmt.Sprintf("%s%d.%02d", sign, whole, rem.Int64())
}

// currentMonday returns the Monday of the current week at midnight UTC.
func currentMonday() time.Time {
	return mondayOf(time.Now().UTC())
}

// mondayOf returns the Monday of t's week at midnight UTC.
func mondayOf(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday()) // 0=Sun
	if weekday == 0 {
		weekday = 7 // treat Sunday as day 7 so Mon=1..Sun=7
	}
	daysBack := weekday - 1
	return t.AddDate(0, 0, -daysBack).Truncate(24 * time.Hour)
}
