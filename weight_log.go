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

// maxWeightKG rejects obvious unit mistakes.
const maxWeightKG = 1000

func validWeight(w float64) bool {
	return w > 0 && w <= maxWeightKG
}

// weightStore saves one weight entry per user per day.
type weightStore interface {
	upsertWeight(ctx context.Context, userID int, day DateOnly, weight float64) (weightEntry, error)
}

// pgWeightStore keeps entries in weight_entries. UNIQUE(user_id, date) means
// saving the same date again updates the weight in place.
type pgWeightStore struct {
	db *pgxpool.Pool
}

func (s pgWeightStore) upsertWeight(ctx context.Context, userID int, day DateOnly, weight float64) (weightEntry, error) {
	return queryOne[weightEntry](s.db, ctx,
		`INSERT INTO weight_entries (user_id, date, weight)
		 VALUES (@userID, @date, @weight)
		 ON CONFLICT (user_id, date) DO UPDATE SET weight = EXCLUDED.weight
		 RETURNING *`,
		pgx.NamedArgs{"userID": userID, "date": day.String(), "weight": weight})
}

// saveWeight creates or updates the weight entry for the given date and
// counts the log toward the user's streak.
// POST /api/save-weight. Body: { "date": "YYYY-MM-DD", "weight": 72.5 }.
//
// The entry is committed before the streak is advanced. If the streak update
// fails the entry is still returned (201) with a null streak and a warning;
// posting the same date again is safe and retries the streak.
func (h *Handler) saveWeight(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Date   string  `json:"date"`
		Weight float64 `json:"weight"`
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
	if !validWeight(body.Weight) {
		apiError(c, http.StatusBadRequest, fmt.Sprintf("weight must be between 0 and %d", maxWeightKG))
		return
	}

	entry, err := h.weights.upsertWeight(c, userID, day, body.Weight)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save weight entry")
		return
	}

	streak, err := recordStreakLog(c, h.streaks, userID, day)
	if err != nil {
		log.Printf("[saveWeight] user %d: entry saved, streak not updated: %v", userID, err)
		c.JSON(http.StatusCreated, gin.H{
			"message": "Weight entry saved",
			"entry":   entry,
			"streak":  nil,
			"warning": "streak was not updated, save this entry again to retry",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Weight entry saved",
		"entry":   entry,
		"streak":  streak,
	})
}

// getWeightHistory returns the caller's weight entries, oldest first.
// GET /api/get-weight-history?start=YYYY-MM-DD&end=YYYY-MM-DD. Both bounds are optional.
func (h *Handler) getWeightHistory(c *gin.Context) {
	userID := c.GetInt("user_id")

	sql := "SELECT * FROM weight_entries WHERE user_id = @userID"
	args := pgx.NamedArgs{"userID": userID}
	for _, bound := range []struct{ param, op string }{{"start", ">="}, {"end", "<="}} {
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
	sql += " ORDER BY date ASC"

	entries, err := queryMany[weightEntry](h.db, c, sql, args)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch weight history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"weightHistory": entries})
}

// removeWeightEntry deletes one entry by ID.
// POST /api/remove-weight-entry. Body: { "entryId": n }.
// Ownership is enforced by requiring both id and user_id to match.
func (h *Handler) removeWeightEntry(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		EntryID int `json:"entryId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.EntryID <= 0 {
		apiError(c, http.StatusBadRequest, "entryId is required")
		return
	}

	result, err := h.db.Exec(c,
		"DELETE FROM weight_entries WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": body.EntryID, "userID": userID})
	if err != nil {
		log.Printf("[removeWeightEntry] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to delete weight entry")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "weight entry not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Weight entry removed"})
}

// deleteAllWeightEntries wipes the caller's weight history.
// POST /api/delete-all-weight-entries.
func (h *Handler) deleteAllWeightEntries(c *gin.Context) {
	userID := c.GetInt("user_id")

	result, err := h.db.Exec(c,
		"DELETE FROM weight_entries WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		log.Printf("[deleteAllWeightEntries] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to delete weight entries")
		return
	}

	msg := "No weight entries to delete"
	if n := result.RowsAffected(); n > 0 {
		msg = fmt.Sprintf("Deleted %d weight entries", n)
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// weightImportRow is one parsed row of an uploaded CSV.
type weightImportRow struct {
	Date   string    `json:"date"`
	Weight flexFloat `json:"weight"`
}

var errEmptyImport = errors.New("data must contain at least one row")

// validateImport normalizes every row or reports the first bad one.
func validateImport(rows []weightImportRow) ([]DateOnly, error) {
	if len(rows) == 0 {
		return nil, errEmptyImport
	}
	days := make([]DateOnly, len(rows))
	for i, r := range rows {
		d, err := parseDay(r.Date)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q", i, r.Date)
		}
		if !validWeight(float64(r.Weight)) {
			return nil, fmt.Errorf("row %d: weight must be between 0 and %d", i, maxWeightKG)
		}
		days[i] = d
	}
	return days, nil
}

// importWeightEntries upserts a batch of rows parsed client-side from a CSV.
// POST /api/upload-csv. Body: { "data": [{ "date", "weight" }] }.
// Rows are validated up front so a bad row rejects the whole upload.
func (h *Handler) importWeightEntries(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Data []weightImportRow `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	days, err := validateImport(body.Data)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	batch := &pgx.Batch{}
	for i, r := range body.Data {
		batch.Queue(
			`INSERT INTO weight_entries (user_id, date, weight)
			 VALUES (@userID, @date, @weight)
			 ON CONFLICT (user_id, date) DO UPDATE SET weight = EXCLUDED.weight`,
			pgx.NamedArgs{"userID": userID, "date": days[i].String(), "weight": float64(r.Weight)})
	}
	if err := h.db.SendBatch(c, batch).Close(); err != nil {
		log.Printf("[importWeightEntries] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to import weight entries")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "CSV data imported successfully",
		"imported": len(body.Data),
	})
}
