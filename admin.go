package main

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// adminUserPatch is the set of user fields an admin may change.
// Pointer fields distinguish "not sent" from "set to empty".
type adminUserPatch struct {
	UserID        int     `json:"userId"`
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	ActivityLevel *string `json:"activityLevel"`
	Goal          *string `json:"goal"`
	PhoneNumber   *string `json:"phoneNumber"`
	Address       *string `json:"address"`
}

// setClauses builds the SET list for the fields that were sent.
func (p adminUserPatch) setClauses() ([]string, pgx.NamedArgs) {
	clauses := []string{}
	args := pgx.NamedArgs{"userID": p.UserID}

	if p.Name != nil {
		clauses = append(clauses, "name = @name")
		args["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		clauses = append(clauses, "email = @email")
		args["email"] = strings.TrimSpace(strings.ToLower(*p.Email))
	}
	if p.ActivityLevel != nil {
		clauses = append(clauses, "activity_level = @activityLevel")
		args["activityLevel"] = *p.ActivityLevel
	}
	if p.Goal != nil {
		clauses = append(clauses, "goal = @goal")
		args["goal"] = *p.Goal
	}
	if p.PhoneNumber != nil {
		clauses = append(clauses, "phone_number = @phoneNumber")
		args["phoneNumber"] = *p.PhoneNumber
	}
	if p.Address != nil {
		clauses = append(clauses, "address = @address")
		args["address"] = *p.Address
	}
	return clauses, args
}

// bindUserID reads { "userId": n } from the body and writes a 400 on failure.
func bindUserID(c *gin.Context) (int, bool) {
	var body struct {
		UserID int `json:"userId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.UserID <= 0 {
		apiError(c, http.StatusBadRequest, "userId is required")
		return 0, false
	}
	return body.UserID, true
}

// adminListUsers returns every non-admin user. GET /api/admin/get-users.
func (h *Handler) adminListUsers(c *gin.Context) {
	users, err := queryMany[user](h.db, c,
		"SELECT * FROM users WHERE role <> 'admin' ORDER BY id", nil)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch users")
		return
	}
	c.JSON(http.StatusOK, users)
}

// adminGetUser returns one user. POST /api/admin/get-user. Body: { userId }.
func (h *Handler) adminGetUser(c *gin.Context) {
	userID, ok := bindUserID(c)
	if !ok {
		return
	}

	u, err := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "user not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to fetch user")
		}
		return
	}
	c.JSON(http.StatusOK, u)
}

// adminUpdateUser changes the allowed profile fields of a user.
// POST /api/admin/update-user. Body: { userId, name?, email?, activityLevel?, goal?, phoneNumber?, address? }.
func (h *Handler) adminUpdateUser(c *gin.Context) {
	var body adminUserPatch
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.UserID <= 0 {
		apiError(c, http.StatusBadRequest, "userId is required")
		return
	}
	if msg := validateActivityAndGoal(body.ActivityLevel, body.Goal); msg != "" {
		apiError(c, http.StatusBadRequest, msg)
		return
	}
	if (body.Name != nil && strings.TrimSpace(*body.Name) == "") ||
		(body.Email != nil && strings.TrimSpace(*body.Email) == "") {
		apiError(c, http.StatusBadRequest, "name and email must not be empty")
		return
	}

	clauses, args := body.setClauses()
	if len(clauses) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No changes made."})
		return
	}

	u, err := queryOne[user](h.db, c,
		"UPDATE users SET "+strings.Join(clauses, ", ")+" WHERE id = @userID RETURNING *",
		args)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			apiError(c, http.StatusNotFound, "user not found")
		case isUniqueViolation(err):
			apiError(c, http.StatusConflict, "email already in use")
		default:
			apiError(c, http.StatusInternalServerError, "failed to update user")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully", "user": u})
}

// adminDeleteUser removes a user; their logs, streak, budget and lifts
// go with them via ON DELETE CASCADE.
// POST /api/admin/delete-user. Body: { userId }.
func (h *Handler) adminDeleteUser(c *gin.Context) {
	userID, ok := bindUserID(c)
	if !ok {
		return
	}

	result, err := h.db.Exec(c, "DELETE FROM users WHERE id = @userID", pgx.NamedArgs{"userID": userID})
	if err != nil {
		log.Printf("[adminDeleteUser] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "user not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
