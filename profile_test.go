package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	return doJSON(router, "POST", path, body)
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCalculateCalories_HTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{cfg: &config{}}
	router := gin.New()
	router.POST("/api/calorie-calculator", h.calculateCalories)

	t.Run("success returns 2-decimal strings", func(t *testing.T) {
		w := postJSON(router, "/api/calorie-calculator",
			`{"gender":"male","weight":80,"height":180,"age":30,"activityLevel":"moderate","goal":"weight_loss","specificGoal":"weight_loss"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("expected string fields: %v", err)
		}
		// bmr 1780, tdee 1780*1.55 = 2759, target 2259
		want := map[string]string{"bmr": "1780.00", "tdee": "2759.00", "targetCalories": "2259.00"}
		for k, v := range want {
			if resp[k] != v {
				t.Errorf("%s = %q, want %q", k, resp[k], v)
			}
		}
	})

	t.Run("female light maintain", func(t *testing.T) {
		w := postJSON(router, "/api/calorie-calculator",
			`{"gender":"female","weight":60,"height":165,"age":25,"activityLevel":"light","goal":"maintain","specificGoal":"weight_gain"}`)
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		// 600 + 1031.25 - 125 - 161 = 1345.25; * 1.375 = 1849.71875
		if resp["bmr"] != "1345.25" || resp["tdee"] != "1849.72" || resp["targetCalories"] != resp["tdee"] {
			t.Errorf("unexpected response: %v", resp)
		}
	})

	cases := []struct {
		name, body, wantErr string
	}{
		{"missing gender", `{"weight":80,"height":180,"age":30,"activityLevel":"moderate","goal":"maintain"}`, "gender is required"},
		{"zero weight", `{"gender":"male","weight":0,"height":180,"age":30,"activityLevel":"moderate","goal":"maintain"}`, "weight is required"},
		{"negative age", `{"gender":"male","weight":80,"height":180,"age":-3,"activityLevel":"moderate","goal":"maintain"}`, "age must be positive"},
		{"bad activity", `{"gender":"male","weight":80,"height":180,"age":30,"activityLevel":"couch","goal":"maintain"}`, "activityLevel must be one of: sedentary, light, moderate, active, very_active"},
		{"malformed", `{"gender":`, "invalid request body"},
		{"age as string", `{"gender":"male","weight":80,"height":180,"age":"thirty","activityLevel":"moderate","goal":"maintain"}`, "invalid request body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(router, "/api/calorie-calculator", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			var resp map[string]string
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp["error"] != tc.wantErr {
				t.Errorf("error = %q, want %q", resp["error"], tc.wantErr)
			}
		})
	}
}

func TestSaveCalories_Validation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{cfg: &config{}}
	router := gin.New()
	router.POST("/api/save-calories", withUser(1, false), h.saveCalories)
	router.POST("/api/save-user-data", withUser(1, false), h.saveUserData)

	cases := []struct {
		path, body string
	}{
		{"/api/save-calories", `{"bmr":"1780.00","tdee":"2759.00"}`},
		{"/api/save-calories", `{"bmr":"abc","tdee":"2759.00","targetCalories":"2259.00"}`},
		{"/api/save-calories", `{"bmr":-1,"tdee":2759,"targetCalories":2259}`},
		{"/api/save-calories", `{"bmr":1780,"tdee":2759,"targetCalories":2259,"activityLevel":"couch"}`},
		{"/api/save-calories", `{"bmr":1780,"tdee":2759,"targetCalories":2259,"goal":"bulk"}`},
		{"/api/save-calories", `{"bmr":"NaN","tdee":"Infinity","targetCalories":"2259.00"}`},
		{"/api/save-calories", `{"bmr":"1780.00","tdee":"2759.00","targetCalories":"-Inf"}`},
		{"/api/save-user-data", `{}`},
		{"/api/save-user-data", `{"goal":"bulk"}`},
	}
	for _, tc := range cases {
		w := postJSON(router, tc.path, tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s: expected 400, got %d: %s", tc.path, tc.body, w.Code, w.Body.String())
		}
	}
}

func TestFlexFloat(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{`2259.5`, 2259.5, false},
		{`"2259.50"`, 2259.5, false},
		{` 12 `, 12, false},
		{`"abc"`, 0, true},
		{`true`, 0, true},
		{`"NaN"`, 0, true},
		{`"nan"`, 0, true},
		{`"Inf"`, 0, true},
		{`"-Infinity"`, 0, true},
		{`"1e400"`, 0, true},
	}
	for _, tc := range cases {
		var f flexFloat
		err := json.Unmarshal([]byte(tc.in), &f)
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && float64(f) != tc.want {
			t.Errorf("%s: got %v, want %v", tc.in, f, tc.want)
		}
	}
}

func TestValueOr(t *testing.T) {
	s := "Leeds"
	if got := valueOr(&s, "Not provided"); got != "Leeds" {
		t.Errorf("valueOr(&s) = %q", got)
	}
	if got := valueOr[string](nil, "Not provided"); got != "Not provided" {
		t.Errorf("valueOr(nil) = %q", got)
	}
}
