package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

var defaultAvailableLifts = []string{
	"Bench Press", "Squat", "Deadlift", "Overhead Press", "Barbell Row", "Pull-ups",
}

// defaultSelectedLifts are shown on the dashboard for a new user.
var defaultSelectedLifts = defaultAvailableLifts[:3]

type createLiftRequest struct {
	LiftType string  `json:"liftType"`
	Weight   float64 `json:"weight"`
	Reps     int     `json:"reps"`
	Sets     int     `json:"sets"`
	Date     string  `json:"date"`
}

func (r createLiftRequest) validate() string {
	switch {
	case strings.TrimSpace(r.LiftType) == "" || r.Date == "":
		return "liftType, weight, reps, sets and date are required"
	case r.Weight <= 0 || r.Reps <= 0 || r.Sets <= 0:
		return "weight, reps and sets must be positive"
	}
	return ""
}

// createLift records one lift session.
// POST /api/lifts/create. Body: { liftType, weight, reps, sets, date }.
func (h *Handler) createLift(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body createLiftRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := body.validate(); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	day, err := parseDay(body.Date)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	lift, err := queryOne[liftEntry](h.db, c,
		`INSERT INTO lift_entries (user_id, lift_type, weight, reps, sets, date)
		 VALUES (@userID, @liftType, @weight, @reps, @sets, @date)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "liftType": strings.TrimSpace(body.LiftType),
			"weight": body.Weight, "reps": body.Reps, "sets": body.Sets, "date": day.String(),
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to create lift")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Lift entry created", "lift": lift})
}

// getLifts returns lift entries sorted by date.
// GET /api/lifts/get?liftType=&startDate=YYYY-MM-DD&endDate=YYYY-MM-DD. All filters optional.
func (h *Handler) getLifts(c *gin.Context) {
	userID := c.GetInt("user_id")

	sql := "SELECT * FROM lift_entries WHERE user_id = @userID"
	args := pgx.NamedArgs{"userID": userID}
	if lt := c.Query("liftType"); lt != "" {
		sql += " AND lift_type = @liftType"
		args["liftType"] = lt
	}
	for _, bound := range []struct{ param, op string }{{"startDate", ">="}, {"endDate", "<="}} {
		s := c.Query(bound.param)
		if s == "" {
			continue
		}
		d, err := parseDay(s)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid "+bound.param+", expected YYYY-MM-DD")
			return
		}
		sql += fmt.Sprintf(" AND date %s @%s", bound.op, bound.param)
		args[bound.param] = d.String()
	}
	sql += " ORDER BY date ASC, id ASC"

	lifts, err := queryMany[liftEntry](h.db, c, sql, args)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch lifts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"lifts": lifts})
}

// updateLift partially updates a lift entry.
// PATCH /api/lifts/update. Body: { liftId, liftType?, weight?, reps?, sets?, date? }.
// Uses COALESCE so omitted fields keep their current values.
func (h *Handler) updateLift(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		LiftID   int      `json:"liftId"`
		LiftType *string  `json:"liftType"`
		Weight   *float64 `json:"weight"`
		Reps     *int     `json:"reps"`
		Sets     *int     `json:"sets"`
		Date     *string  `json:"date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.LiftID <= 0 {
		apiError(c, http.StatusBadRequest, "liftId is required")
		return
	}
	if (body.Weight != nil && *body.Weight <= 0) ||
		(body.Reps != nil && *body.Reps <= 0) ||
		(body.Sets != nil && *body.Sets <= 0) {
		apiError(c, http.StatusBadRequest, "weight, reps and sets must be positive")
		return
	}
	var date *string
	if body.Date != nil {
		d, err := parseDay(*body.Date)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		s := d.String()
		date = &s
	}

	lift, err := queryOne[liftEntry](h.db, c,
		`UPDATE lift_entries SET
			lift_type  = COALESCE(@liftType, lift_type),
			weight     = COALESCE(@weight, weight),
			reps       = COALESCE(@reps, reps),
			sets       = COALESCE(@sets, sets),
			date       = COALESCE(@date::date, date),
			updated_at = now()
		 WHERE id = @id AND user_id = @userID
		 RETURNING *`,
		pgx.NamedArgs{
			"id": body.LiftID, "userID": userID, "liftType": body.LiftType,
			"weight": body.Weight, "reps": body.Reps, "sets": body.Sets, "date": date,
		})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "lift not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to update lift")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Lift entry updated", "lift": lift})
}

// deleteLift removes one lift entry owned by the caller.
// POST /api/lifts/delete. Body: { liftId }.
func (h *Handler) deleteLift(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		LiftID int `json:"liftId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.LiftID <= 0 {
		apiError(c, http.StatusBadRequest, "liftId is required")
		return
	}

	result, err := h.db.Exec(c,
		"DELETE FROM lift_entries WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": body.LiftID, "userID": userID})
	if err != nil {
		log.Printf("[deleteLift] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to delete lift")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "lift not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lift entry deleted"})
}

// deleteAllLifts wipes the caller's lift history. POST /api/lifts/delete-all.
func (h *Handler) deleteAllLifts(c *gin.Context) {
	userID := c.GetInt("user_id")

	result, err := h.db.Exec(c,
		"DELETE FROM lift_entries WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		log.Printf("[deleteAllLifts] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to delete lifts")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "All lift entries deleted",
		"deletedCount": result.RowsAffected(),
	})
}

// loadUserLifts returns the caller's lift lists, creating the defaults on first access.
func (h *Handler) loadUserLifts(ctx context.Context, userID int) (userLifts, error) {
	// DO UPDATE with a no-op so RETURNING yields the existing row too.
	return queryOne[userLifts](h.db, ctx,
		`INSERT INTO user_lifts (user_id, available_lifts, selected_lifts)
		 VALUES (@userID, @available, @selected)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "available": defaultAvailableLifts, "selected": defaultSelectedLifts,
		})
}

// getAvailableLifts returns the lifts a user can pick from and the ones they track.
// GET /api/lifts/available.
func (h *Handler) getAvailableLifts(c *gin.Context) {
	userID := c.GetInt("user_id")

	lifts, err := h.loadUserLifts(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch available lifts")
		return
	}
	c.JSON(http.StatusOK, lifts)
}

// mergeLiftLists applies an update request to the current lists. A new custom
// lift is appended to both lists unless already present.
func mergeLiftLists(cur userLifts, available, selected []string, custom string) userLifts {
	if available != nil {
		cur.AvailableLifts = available
	}
	if selected != nil {
		cur.SelectedLifts = selected
	}
	if custom = strings.TrimSpace(custom); custom != "" {
		if !slices.Contains(cur.AvailableLifts, custom) {
			cur.AvailableLifts = append(slices.Clone(cur.AvailableLifts), custom)
		}
		if !slices.Contains(cur.SelectedLifts, custom) {
			cur.SelectedLifts = append(slices.Clone(cur.SelectedLifts), custom)
		}
	}
	return cur
}

// updateAvailableLifts replaces either list and/or adds a custom lift.
// POST /api/lifts/available. Body: { availableLifts?, selectedLifts?, newCustomLift? }.
func (h *Handler) updateAvailableLifts(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		AvailableLifts []string `json:"availableLifts"`
		SelectedLifts  []string `json:"selectedLifts"`
		NewCustomLift  string   `json:"newCustomLift"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cur, err := h.loadUserLifts(c, userID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch available lifts")
		return
	}
	next := mergeLiftLists(cur, body.AvailableLifts, body.SelectedLifts, body.NewCustomLift)

	updated, err := queryOne[userLifts](h.db, c,
		`UPDATE user_lifts SET available_lifts = @available, selected_lifts = @selected
		 WHERE user_id = @userID
		 RETURNING *`,
		pgx.NamedArgs{"userID": userID, "available": next.AvailableLifts, "selected": next.SelectedLifts})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update available lifts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lifts updated", "lifts": updated})
}
