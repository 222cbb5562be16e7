package main

import (
	"net/http"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestDefaultLifts(t *testing.T) {
	if len(defaultAvailableLifts) != 6 {
		t.Errorf("expected 6 default lifts, got %v", defaultAvailableLifts)
	}
	want := []string{"Bench Press", "Squat", "Deadlift"}
	if !reflect.DeepEqual(defaultSelectedLifts, want) {
		t.Errorf("defaultSelectedLifts = %v, want %v", defaultSelectedLifts, want)
	}
}

func TestMergeLiftLists(t *testing.T) {
	cur := userLifts{
		AvailableLifts: []string{"Squat", "Deadlift"},
		SelectedLifts:  []string{"Squat"},
	}

	cases := []struct {
		name          string
		available     []string
		selected      []string
		custom        string
		wantAvailable []string
		wantSelected  []string
	}{
		{"no change", nil, nil, "", []string{"Squat", "Deadlift"}, []string{"Squat"}},
		{"replace selected", nil, []string{"Deadlift"}, "", []string{"Squat", "Deadlift"}, []string{"Deadlift"}},
		{"custom appended to both", nil, nil, " Hip Thrust ", []string{"Squat", "Deadlift", "Hip Thrust"}, []string{"Squat", "Hip Thrust"}},
		{"custom already available", nil, nil, "Deadlift", []string{"Squat", "Deadlift"}, []string{"Squat", "Deadlift"}},
		{"custom already in both", nil, nil, "Squat", []string{"Squat", "Deadlift"}, []string{"Squat"}},
		{"replace then add", []string{"Row"}, []string{}, "Dips", []string{"Row", "Dips"}, []string{"Dips"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mergeLiftLists(cur, tc.available, tc.selected, tc.custom)
			if !reflect.DeepEqual(got.AvailableLifts, tc.wantAvailable) {
				t.Errorf("AvailableLifts = %v, want %v", got.AvailableLifts, tc.wantAvailable)
			}
			if !reflect.DeepEqual(got.SelectedLifts, tc.wantSelected) {
				t.Errorf("SelectedLifts = %v, want %v", got.SelectedLifts, tc.wantSelected)
			}
		})
	}
	if !reflect.DeepEqual(cur.AvailableLifts, []string{"Squat", "Deadlift"}) {
		t.Errorf("input was mutated: %v", cur.AvailableLifts)
	}
}

func TestLiftHandlers_Validation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{cfg: &config{}}
	router := gin.New()
	api := router.Group("/api/lifts", withUser(1, false))
	api.POST("/create", h.createLift)
	api.PATCH("/update", h.updateLift)
	api.POST("/delete", h.deleteLift)
	api.GET("/get", h.getLifts)

	cases := []struct {
		method, path, body string
	}{
		{"POST", "/api/lifts/create", `{"weight":100,"reps":5,"sets":3,"date":"2024-01-01"}`},
		{"POST", "/api/lifts/create", `{"liftType":"Squat","weight":100,"reps":0,"sets":3,"date":"2024-01-01"}`},
		{"POST", "/api/lifts/create", `{"liftType":"Squat","weight":100,"reps":5,"sets":3,"date":"Jan 1"}`},
		{"PATCH", "/api/lifts/update", `{"weight":100}`},
		{"PATCH", "/api/lifts/update", `{"liftId":3,"sets":-1}`},
		{"PATCH", "/api/lifts/update", `{"liftId":3,"date":"soon"}`},
		{"POST", "/api/lifts/delete", `{}`},
		{"GET", "/api/lifts/get?startDate=yesterday", ``},
	}
	for _, tc := range cases {
		w := doJSON(router, tc.method, tc.path, tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s %s: expected 400, got %d", tc.method, tc.path, tc.body, w.Code)
		}
	}
}
