package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxStreakAttempts bounds the optimistic read-advance-write loop.
const maxStreakAttempts = 5

var errStreakContention = errors.New("streak update lost too many concurrent races")

// streakStore persists streak records with optimistic versioning.
type streakStore interface {
	// loadStreak returns the current record and its version, or (nil, 0, nil)
	// when the user has never logged.
	loadStreak(ctx context.Context, userID int) (*streakRecord, int, error)
	// saveStreak writes rec only if the stored version still equals
	// expectedVersion; version 0 means "create if absent". It reports false
	// when another writer got there first.
	saveStreak(ctx context.Context, userID int, rec streakRecord, expectedVersion int) (bool, error)
}

// recordStreakLog advances the user's streak for a log on day. Concurrent
// logs for the same user are serialized by the store's version check: the
// loser re-reads and re-applies the transition.
func recordStreakLog(ctx context.Context, store streakStore, userID int, day DateOnly) (streakRecord, error) {
	for attempt := 0; attempt < maxStreakAttempts; attempt++ {
		prior, version, err := store.loadStreak(ctx, userID)
		if err != nil {
			return streakRecord{}, fmt.Errorf("load streak: %w", err)
		}
		next := advanceStreak(prior, day)
		ok, err := store.saveStreak(ctx, userID, next, version)
		if err != nil {
			return streakRecord{}, fmt.Errorf("save streak: %w", err)
		}
		if ok {
			return next, nil
		}
	}
	return streakRecord{}, errStreakContention
}

// pgStreakStore keeps streaks in the user_streaks table.
type pgStreakStore struct {
	db *pgxpool.Pool
}

func (s pgStreakStore) loadStreak(ctx context.Context, userID int) (*streakRecord, int, error) {
	var rec streakRecord
	var version int
	err := s.db.QueryRow(ctx,
		"SELECT streak, last_logged_date, version FROM user_streaks WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID}).Scan(&rec.Streak, &rec.LastLoggedDate, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return &rec, version, nil
}

func (s pgStreakStore) saveStreak(ctx context.Context, userID int, rec streakRecord, expectedVersion int) (bool, error) {
	args := pgx.NamedArgs{
		"userID":   userID,
		"streak":   rec.Streak,
		"date":     rec.LastLoggedDate.String(),
		"expected": expectedVersion,
	}

	sql := `UPDATE user_streaks
		 SET streak = @streak, last_logged_date = @date, version = version + 1, updated_at = now()
		 WHERE user_id = @userID AND version = @expected`
	if expectedVersion == 0 {
		sql = `INSERT INTO user_streaks (user_id, streak, last_logged_date, version)
		 VALUES (@userID, @streak, @date, 1)
		 ON CONFLICT (user_id) DO NOTHING`
	}

	tag, err := s.db.Exec(ctx, sql, args)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// streakResponse is the wire shape for both streak endpoints.
type streakResponse struct {
	Streak         int       `json:"streak"`
	LastLoggedDate *DateOnly `json:"lastLoggedDate"`
}

// getStreak returns the caller's streak, 0 if they have never logged.
// GET /api/streak/get-streak.
func (h *Handler) getStreak(c *gin.Context) {
	userID := c.GetInt("user_id")

	rec, _, err := h.streaks.loadStreak(c, userID)
	if err != nil {
		log.Printf("[getStreak] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to fetch streak")
		return
	}
	if rec == nil {
		c.JSON(http.StatusOK, streakResponse{})
		return
	}
	c.JSON(http.StatusOK, streakResponse{Streak: rec.Streak, LastLoggedDate: &rec.LastLoggedDate})
}

// updateStreak records a log on the posted date.
// POST /api/streak/update-streak. Body: { "date": "YYYY-MM-DD" | RFC 3339 }.
func (h *Handler) updateStreak(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Date string `json:"date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Date == "" {
		apiError(c, http.StatusBadRequest, "date is required")
		return
	}
	day, err := parseDay(body.Date)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	rec, ok := h.advanceStreakOrFail(c, userID, day)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, streakResponse{Streak: rec.Streak, LastLoggedDate: &rec.LastLoggedDate})
}

// advanceStreakOrFail runs recordStreakLog and writes the error response
// itself when it fails.
func (h *Handler) advanceStreakOrFail(c *gin.Context, userID int, day DateOnly) (streakRecord, bool) {
	rec, err := recordStreakLog(c, h.streaks, userID, day)
	if err != nil {
		log.Printf("[streak] user %d: %v", userID, err)
		if errors.Is(err, errStreakContention) {
			apiError(c, http.StatusServiceUnavailable, "streak is being updated, try again")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to update streak")
		}
		return streakRecord{}, false
	}
	return rec, true
}
