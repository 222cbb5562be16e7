package main

import (
	"errors"
	"testing"
	"time"
)

// validProfile returns a complete male profile; tests override single fields.
func validProfile() ProfileInput {
	return ProfileInput{
		Gender:        "male",
		Weight:        80,
		Height:        180,
		Age:           30,
		ActivityLevel: "moderate",
		Goal:          "maintain",
	}
}

/* ─── BMR / TDEE ─────────────────────────────────────────────────────── */

func TestComputeCaloricTarget_BMR(t *testing.T) {
	cases := []struct {
		name   string
		gender string
		want   float64
	}{
		// 10*80 + 6.25*180 - 5*30 = 1775
		{"male adds 5", "male", 1780},
		{"female subtracts 161", "female", 1614},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validProfile()
			in.Gender = tc.gender
			got, err := computeCaloricTarget(in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.BMR != tc.want {
				t.Errorf("BMR = %v, want %v", got.BMR, tc.want)
			}
		})
	}
}

// TestComputeCaloricTarget_TDEEMultipliers checks tdee = bmr * multiplier
// exactly for every activity level.
func TestComputeCaloricTarget_TDEEMultipliers(t *testing.T) {
	for level, mult := range activityMultipliers {
		t.Run(level, func(t *testing.T) {
			in := validProfile()
			in.ActivityLevel = level
			got, err := computeCaloricTarget(in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.TDEE != got.BMR*mult {
				t.Errorf("TDEE = %v, want %v * %v", got.TDEE, got.BMR, mult)
			}
		})
	}
	if len(activityMultipliers) != 5 {
		t.Errorf("expected 5 activity levels, got %d", len(activityMultipliers))
	}
}

/* ─── Goal offsets ───────────────────────────────────────────────────── */

func TestComputeCaloricTarget_GoalOffsets(t *testing.T) {
	cases := []struct {
		goal, specific string
		offset         float64
	}{
		{"maintain", "", 0},
		{"maintain", "extreme_weight_loss", 0},
		{"maintain", "weight_gain", 0},
		{"weight_loss", "mild_weight_loss", -250},
		{"weight_loss", "weight_loss", -500},
		{"weight_loss", "extreme_weight_loss", -1000},
		{"weight_gain", "mild_weight_gain", 250},
		{"weight_gain", "weight_gain", 500},
		{"weight_gain", "extreme_weight_gain", 1000},
		// No offset without a recognized specific goal for that direction.
		{"weight_loss", "", 0},
		{"weight_loss", "weight_gain", 0},
		{"weight_gain", "bulk", 0},
	}
	for _, tc := range cases {
		t.Run(tc.goal+"/"+tc.specific, func(t *testing.T) {
			in := validProfile()
			in.Goal, in.SpecificGoal = tc.goal, tc.specific
			got, err := computeCaloricTarget(in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.TargetCalories != got.TDEE+tc.offset {
				t.Errorf("TargetCalories = %v, want TDEE %v + %v", got.TargetCalories, got.TDEE, tc.offset)
			}
		})
	}
}

/* ─── Validation ─────────────────────────────────────────────────────── */

func TestComputeCaloricTarget_Validation(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(in *ProfileInput)
		field string
	}{
		{"missing gender", func(in *ProfileInput) { in.Gender = "" }, "gender"},
		{"unknown gender", func(in *ProfileInput) { in.Gender = "other" }, "gender"},
		{"missing weight", func(in *ProfileInput) { in.Weight = 0 }, "weight"},
		{"negative weight", func(in *ProfileInput) { in.Weight = -70 }, "weight"},
		{"missing height", func(in *ProfileInput) { in.Height = 0 }, "height"},
		{"negative height", func(in *ProfileInput) { in.Height = -1 }, "height"},
		{"missing age", func(in *ProfileInput) { in.Age = 0 }, "age"},
		{"negative age", func(in *ProfileInput) { in.Age = -30 }, "age"},
		{"missing activity level", func(in *ProfileInput) { in.ActivityLevel = "" }, "activityLevel"},
		{"unknown activity level", func(in *ProfileInput) { in.ActivityLevel = "extreme" }, "activityLevel"},
		{"missing goal", func(in *ProfileInput) { in.Goal = "" }, "goal"},
		{"unknown goal", func(in *ProfileInput) { in.Goal = "recomp" }, "goal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validProfile()
			tc.mut(&in)
			_, err := computeCaloricTarget(in)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if vErr.Field != tc.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tc.field)
			}
		})
	}
}

func TestComputeCaloricTarget_Idempotent(t *testing.T) {
	in := validProfile()
	in.Goal, in.SpecificGoal = "weight_loss", "weight_loss"
	a, errA := computeCaloricTarget(in)
	b, errB := computeCaloricTarget(in)
	if errA != nil || errB != nil {
		t.Fatalf("unexpected errors: %v, %v", errA, errB)
	}
	if a != b {
		t.Errorf("results differ: %+v vs %+v", a, b)
	}
}

/* ─── Wire format ────────────────────────────────────────────────────── */

func TestNewCaloricResponse_TwoDecimals(t *testing.T) {
	got := newCaloricResponse(CaloricResult{BMR: 1780, TDEE: 2759.0000001, TargetCalories: 2259.125})
	want := caloricResponse{BMR: "1780.00", TDEE: "2759.00", TargetCalories: "2259.13"}
	if got != want {
		t.Errorf("newCaloricResponse = %+v, want %+v", got, want)
	}
}

func TestFixed2_Rounding(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1620.625, "1620.63"}, // exact half rounds up, not to even
		{2259.125, "2259.13"},
		{0.125, "0.13"},
		{2.5, "2.50"},
		{1.005, "1.00"}, // stored as 1.00499999..., so it rounds down
		{1849.71875, "1849.72"},
		{1944.7449, "1944.74"},
		{0, "0.00"},
		{-1620.625, "-1620.63"},
		{-0.001, "0.00"},
	}
	for _, tc := range cases {
		if got := fixed2(tc.in); got != tc.want {
			t.Errorf("fixed2(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestNewCaloricResponse_HalfCentimetreHeight covers a realistic input whose
// BMR lands exactly on a half cent.
func TestNewCaloricResponse_HalfCentimetreHeight(t *testing.T) {
	in := validProfile()
	in.Weight, in.Height, in.ActivityLevel = 70, 170.5, "sedentary"

	got, err := computeCaloricTarget(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 700 + 1065.625 - 150 + 5
	if got.BMR != 1620.625 {
		t.Fatalf("BMR = %v, want 1620.625", got.BMR)
	}
	if resp := newCaloricResponse(got); resp.BMR != "1620.63" {
		t.Errorf("wire BMR = %q, want 1620.63", resp.BMR)
	}
}

/* ─── Week helpers ───────────────────────────────────────────────────── */

func TestMondayOf(t *testing.T) {
	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC), "2024-01-01"},  // Wednesday
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-01-01"},   // Monday
		{time.Date(2024, 1, 7, 23, 59, 0, 0, time.UTC), "2024-01-01"}, // Sunday
		{time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC), "2024-02-26"},  // crosses month
		{time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC), "2024-12-30"},   // crosses year
	}
	for _, tc := range cases {
		got := mondayOf(tc.in)
		if got.Format(dateLayout) != tc.want {
			t.Errorf("mondayOf(%s) = %s, want %s", tc.in, got.Format(dateLayout), tc.want)
		}
		if got.Hour() != 0 || got.Minute() != 0 {
			t.Errorf("mondayOf(%s) not at midnight: %s", tc.in, got)
		}
	}
}
