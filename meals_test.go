package main

import (
	"net/http"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBudgetCategory(t *testing.T) {
	cases := []struct {
		amount     float64
		budgetType string
		want       string
	}{
		// 70/week and 300/month are exactly 10/day; 140/week and 600/month are 20/day.
		{70, "weekly", "low"},
		{70.07, "weekly", "medium"},
		{140, "weekly", "medium"},
		{141, "weekly", "high"},
		{300, "monthly", "low"},
		{600, "monthly", "medium"},
		{601, "monthly", "high"},
		{0, "weekly", "low"},
	}
	for _, tc := range cases {
		if got := budgetCategory(tc.amount, tc.budgetType); got != tc.want {
			t.Errorf("budgetCategory(%v, %s) = %s, want %s", tc.amount, tc.budgetType, got, tc.want)
		}
	}
}

func TestCalorieCategory(t *testing.T) {
	cases := []struct {
		target float64
		want   string
	}{
		{1200, "low"},
		{1800, "low"},
		{1800.01, "moderate"},
		{2500, "moderate"},
		{2500.5, "high"},
		{defaultTargetCalories, "moderate"},
	}
	for _, tc := range cases {
		if got := calorieCategory(tc.target); got != tc.want {
			t.Errorf("calorieCategory(%v) = %s, want %s", tc.target, got, tc.want)
		}
	}
}

func TestAffordableTiers(t *testing.T) {
	cases := map[string][]string{
		"low":     {"low"},
		"medium":  {"low", "medium"},
		"high":    {"low", "medium", "high"},
		"unknown": {"low"},
	}
	for in, want := range cases {
		if got := affordableTiers(in); !reflect.DeepEqual(got, want) {
			t.Errorf("affordableTiers(%s) = %v, want %v", in, got, want)
		}
	}
	// The default personalization budget lands in the middle tier.
	if got := budgetCategory(defaultBudgetAmount, "weekly"); got != "medium" {
		t.Errorf("default budget category = %s, want medium", got)
	}
}

func TestMealHandlers_Validation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{cfg: &config{}}
	router := gin.New()
	router.POST("/api/meals", h.createMeal)
	router.DELETE("/api/meals/:mealId", h.deleteMeal)
	router.POST("/api/favorites/add", withUser(1, false), h.addFavorite)
	router.POST("/api/favorites/remove", withUser(1, false), h.removeFavorite)

	cases := []struct {
		method, path, body string
	}{
		{"POST", "/api/meals", `{"budgetCategory":"low","calorieCategory":"low"}`},
		{"POST", "/api/meals", `{"name":"Soup","totalCalories":-1,"budgetCategory":"low","calorieCategory":"low"}`},
		{"POST", "/api/meals", `{"name":"Soup","budgetCategory":"cheap","calorieCategory":"low"}`},
		{"POST", "/api/meals", `{"name":"Soup","budgetCategory":"low","calorieCategory":"medium"}`},
		{"POST", "/api/meals", `{"name":"Soup","totalCalories":"NaN","budgetCategory":"low","calorieCategory":"low"}`},
		{"POST", "/api/meals", `{"name":"Soup","estimatedCost":"Inf","budgetCategory":"low","calorieCategory":"low"}`},
		{"DELETE", "/api/meals/abc", ``},
		{"DELETE", "/api/meals/0", ``},
		{"POST", "/api/favorites/add", `{}`},
		{"POST", "/api/favorites/remove", `{"mealId":"x"}`},
		{"POST", "/api/favorites/add", `{"mealId":1.9}`},
		{"POST", "/api/favorites/add", `{"mealId":"2.5"}`},
		{"POST", "/api/favorites/add", `{"mealId":1e20}`},
		{"POST", "/api/favorites/remove", `{"mealId":-4}`},
	}
	for _, tc := range cases {
		w := doJSON(router, tc.method, tc.path, tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s %s: expected 400, got %d", tc.method, tc.path, tc.body, w.Code)
		}
	}
}
