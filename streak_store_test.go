package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// withUser stands in for authMiddleware in handler tests.
func withUser(userID int, isAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("is_admin", isAdmin)
		c.Next()
	}
}

type storedStreak struct {
	rec     streakRecord
	version int
}

// memStreakStore is an in-memory streakStore with the same version semantics
// as pgStreakStore. conflicts makes the next N saves lose the race.
type memStreakStore struct {
	mu        sync.Mutex
	rows      map[int]storedStreak
	conflicts int
	saves     int
	loadErr   error
}

func newMemStreakStore() *memStreakStore {
	return &memStreakStore{rows: map[int]storedStreak{}}
}

func (m *memStreakStore) loadStreak(_ context.Context, userID int) (*streakRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, 0, m.loadErr
	}
	row, ok := m.rows[userID]
	if !ok {
		return nil, 0, nil
	}
	rec := row.rec
	return &rec, row.version, nil
}

func (m *memStreakStore) saveStreak(_ context.Context, userID int, rec streakRecord, expected int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.conflicts > 0 {
		m.conflicts--
		return false, nil
	}
	row, ok := m.rows[userID]
	switch {
	case expected == 0 && ok:
		return false, nil
	case expected != 0 && (!ok || row.version != expected):
		return false, nil
	}
	m.rows[userID] = storedStreak{rec: rec, version: expected + 1}
	return true, nil
}

func TestRecordStreakLog_CreatesThenAdvances(t *testing.T) {
	store := newMemStreakStore()
	ctx := context.Background()

	for i, want := range []struct {
		day    string
		streak int
	}{
		{"2024-01-01", 1},
		{"2024-01-02", 2},
		{"2024-01-02", 2},
		{"2024-01-03", 3},
		{"2024-01-06", 1},
	} {
		got, err := recordStreakLog(ctx, store, 7, day(want.day))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got.Streak != want.streak {
			t.Errorf("step %d (%s): Streak = %d, want %d", i, want.day, got.Streak, want.streak)
		}
	}
	if v := store.rows[7].version; v != 5 {
		t.Errorf("version = %d, want 5 after five saves", v)
	}
}

func TestRecordStreakLog_RetriesTransientConflicts(t *testing.T) {
	store := newMemStreakStore()
	store.rows[1] = storedStreak{streakRecord{4, day("2024-01-01")}, 3}
	store.conflicts = maxStreakAttempts - 1

	got, err := recordStreakLog(context.Background(), store, 1, day("2024-01-02"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Streak != 5 {
		t.Errorf("Streak = %d, want 5", got.Streak)
	}
	if store.saves != maxStreakAttempts {
		t.Errorf("saves = %d, want %d", store.saves, maxStreakAttempts)
	}
}

func TestRecordStreakLog_GivesUpAfterMaxAttempts(t *testing.T) {
	store := newMemStreakStore()
	store.conflicts = maxStreakAttempts

	_, err := recordStreakLog(context.Background(), store, 1, day("2024-01-02"))
	if !errors.Is(err, errStreakContention) {
		t.Fatalf("err = %v, want errStreakContention", err)
	}
	if _, ok := store.rows[1]; ok {
		t.Error("no record should have been written")
	}
}

func TestRecordStreakLog_LoadError(t *testing.T) {
	store := newMemStreakStore()
	store.loadErr = errors.New("connection reset")

	_, err := recordStreakLog(context.Background(), store, 1, day("2024-01-02"))
	if err == nil || errors.Is(err, errStreakContention) {
		t.Fatalf("err = %v, want wrapped load error", err)
	}
}

// TestRecordStreakLog_ConcurrentSameDay checks that racing logs for the same
// day never produce a streak other than 1 and leave one consistent record.
func TestRecordStreakLog_ConcurrentSameDay(t *testing.T) {
	store := newMemStreakStore()
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Contention is a valid outcome; anything else is a bug.
			if _, err := recordStreakLog(context.Background(), store, 9, day("2024-05-01")); err != nil && !errors.Is(err, errStreakContention) {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	if got := store.rows[9].rec; got.Streak != 1 || got.LastLoggedDate.String() != "2024-05-01" {
		t.Errorf("record = %+v, want streak 1 on 2024-05-01", got)
	}
}

/* ─── Handlers ───────────────────────────────────────────────────────── */

func setupStreakRouter(store streakStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handler{streaks: store, cfg: &config{}}
	router := gin.New()
	router.GET("/api/streak/get-streak", withUser(1, false), h.getStreak)
	router.POST("/api/streak/update-streak", withUser(1, false), h.updateStreak)
	return router
}

func TestGetStreak_NoRecord(t *testing.T) {
	router := setupStreakRouter(newMemStreakStore())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/streak/get-streak", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := strings.TrimSpace(w.Body.String()); body != `{"streak":0,"lastLoggedDate":null}` {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestUpdateStreak_Handler(t *testing.T) {
	store := newMemStreakStore()
	store.rows[1] = storedStreak{streakRecord{3, day("2024-01-09")}, 2}
	router := setupStreakRouter(store)

	cases := []struct {
		name       string
		body       string
		wantStatus int
		wantStreak int
	}{
		{"next day", `{"date":"2024-01-10"}`, http.StatusOK, 4},
		{"same day again", `{"date":"2024-01-10T18:00:00Z"}`, http.StatusOK, 4},
		{"missing date", `{}`, http.StatusBadRequest, 0},
		{"bad date", `{"date":"10/01/2024"}`, http.StatusBadRequest, 0},
		{"malformed body", `{`, http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/streak/update-streak", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			var resp streakResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if resp.Streak != tc.wantStreak || resp.LastLoggedDate == nil || resp.LastLoggedDate.String() != "2024-01-10" {
				t.Errorf("unexpected response: %s", w.Body.String())
			}
		})
	}
}

func TestUpdateStreak_ContentionIs503(t *testing.T) {
	store := newMemStreakStore()
	store.conflicts = maxStreakAttempts
	router := setupStreakRouter(store)

	req := httptest.NewRequest("POST", "/api/streak/update-streak", strings.NewReader(`{"date":"2024-01-10"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
}
