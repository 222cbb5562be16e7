package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler holds shared dependencies (db pool, config) for all route handlers.
type Handler struct {
	db      *pgxpool.Pool
	streaks streakStore
	weights weightStore
	cfg     *config
}

// newHandler wires a Handler around an open pool.
func newHandler(db *pgxpool.Pool, cfg *config) *Handler {
	return &Handler{db: db, streaks: pgStreakStore{db: db}, weights: pgWeightStore{db: db}, cfg: cfg}
}

/* ─── Database helpers ────────────────────────────────────────────────── */

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the helpers below
// work inside and outside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// queryOne runs a query and scans the first row into T using RowToStructByName.
// Logs query and scan errors for debugging (e.g. struct/column mismatches).
// pgx.ErrNoRows is returned as-is and not logged.
func queryOne[T any](db querier, ctx context.Context, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := db.Query(ctx, sql, args)
	if err != nil {
		log.Printf("[queryOne] Query error: %v", err)
		var zero T
		return zero, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("[queryOne] Scan error: %v", err)
	}
	return result, err
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
// The result is never nil, so it encodes as [] rather than null.
func queryMany[T any](db querier, ctx context.Context, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := db.Query(ctx, sql, args)
	if err != nil {
		log.Printf("[queryMany] Query error: %v", err)
		return nil, err
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		log.Printf("[queryMany] Scan error: %v", err)
		return nil, err
	}
	if results == nil {
		results = []T{}
	}
	return results, nil
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

/* ─── Server setup ────────────────────────────────────────────────────── */

// getDBPool creates a connection pool shared by every request.
func getDBPool(ctx context.Context, cfg *config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("parse DB_URL: %w", err)
	}
	// Use simple query protocol to avoid "cached plan must not change result type"
	// errors from a pooler's server-side prepared statement cache after schema changes.
	poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "nourishmate-api"
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	log.Println("[db] pool ready")
	return pool, nil
}

// registerRoutes registers all API routes on the router. Paths follow the
// client's existing URLs.
func (h *Handler) registerRoutes(router *gin.Engine) {
	limited := router.Group("/api", h.authRateLimiter())
	limited.POST("/login", h.login)
	limited.POST("/register", h.register)

	// Public routes
	public := router.Group("/api")
	public.POST("/logout", h.logout)
	public.POST("/calorie-calculator", h.calculateCalories)
	public.GET("/meals", h.listMeals)
	public.GET("/meal-logger/available-meals", h.availableMeals)

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())
	api.GET("/check-auth", h.checkAuth)
	api.POST("/save-calories", h.saveCalories)
	api.POST("/save-user-data", h.saveUserData)

	api.GET("/streak/get-streak", h.getStreak)
	api.POST("/streak/update-streak", h.updateStreak)

	api.POST("/save-weight", h.saveWeight)
	api.GET("/get-weight-history", h.getWeightHistory)
	api.POST("/remove-weight-entry", h.removeWeightEntry)
	api.POST("/delete-all-weight-entries", h.deleteAllWeightEntries)
	api.POST("/upload-csv", h.importWeightEntries)

	api.GET("/lifts/get", h.getLifts)
	api.POST("/lifts/create", h.createLift)
	api.PATCH("/lifts/update", h.updateLift)
	api.POST("/lifts/delete", h.deleteLift)
	api.POST("/lifts/delete-all", h.deleteAllLifts)
	api.GET("/lifts/available", h.getAvailableLifts)
	api.POST("/lifts/available", h.updateAvailableLifts)

	api.GET("/meal-logger/get-logs", h.getMealLog)
	api.POST("/meal-logger/log-meal", h.logMeal)
	api.POST("/meal-logger/delete-meal", h.deleteLoggedMeal)
	api.POST("/meal-logger/clear-meals", h.clearMealLog)
	api.GET("/meal-logger/summary", h.getDailySummary)
	api.GET("/meal-logger/week-summary", h.getWeekSummary)
	api.POST("/meal-logger/estimate", h.estimateMeal)

	api.GET("/personalizedMeals", h.personalizedMeals)
	api.GET("/favorites", h.getFavorites)
	api.POST("/favorites/add", h.addFavorite)
	api.POST("/favorites/remove", h.removeFavorite)

	api.GET("/budget-tracker", h.getBudget)
	api.POST("/budget-tracker/set-budget", h.setBudget)
	api.POST("/budget-tracker/add-expense", h.addExpense)
	api.DELETE("/budget-tracker/delete-expense", h.deleteExpense)
	api.GET("/budget-tracker/summary", h.getBudgetSummary)

	// Admin routes
	admin := router.Group("/api", h.authMiddleware(), adminMiddleware())
	admin.POST("/meals", h.createMeal)
	admin.POST("/meals/add", h.createMeal)
	admin.DELETE("/meals/:mealId", h.deleteMeal)
	admin.GET("/admin/get-users", h.adminListUsers)
	admin.POST("/admin/get-user", h.adminGetUser)
	admin.POST("/admin/update-user", h.adminUpdateUser)
	admin.POST("/admin/delete-user", h.adminDeleteUser)
}
