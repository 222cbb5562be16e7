package main

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	limit "github.com/yangxikun/gin-limit-by-key"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const tokenCookie = "token"

// dummyHash is a pre-computed bcrypt hash used when a login email isn't found.
// Running bcrypt against it (instead of returning early) keeps response time
// constant, preventing timing-based account enumeration.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy"), bcrypt.DefaultCost)

// register creates a user with the "user" role.
// POST /api/register (public). 409 if the email is taken.
func (h *Handler) register(c *gin.Context) {
	var body struct {
		Name        string  `json:"name"`
		Email       string  `json:"email"`
		Password    string  `json:"password"`
		Address     *string `json:"address"`
		PhoneNumber *string `json:"phoneNumber"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	if body.Name == "" || body.Email == "" || body.Password == "" {
		apiError(c, http.StatusBadRequest, "name, email and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[register] bcrypt: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to register user")
		return
	}

	var id int
	err = h.db.QueryRow(c,
		`INSERT INTO users (name, email, password, address, phone_number, role)
		 VALUES (@name, @email, @password, @address, @phoneNumber, 'user')
		 RETURNING id`,
		pgx.NamedArgs{
			"name": body.Name, "email": body.Email, "password": string(hash),
			"address": body.Address, "phoneNumber": body.PhoneNumber,
		}).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			apiError(c, http.StatusConflict, "user already exists")
			return
		}
		log.Printf("[register] insert: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to register user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "id": id})
}

// login verifies email/password, sets the session cookie and returns the token.
// POST /api/login (public).
func (h *Handler) login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		apiError(c, http.StatusBadRequest, "email and password are required")
		return
	}

	u, lookupErr := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE email = @email",
		pgx.NamedArgs{"email": strings.TrimSpace(strings.ToLower(body.Email))})

	// Always run bcrypt so response time does not reveal whether the email exists.
	hashToCheck := string(dummyHash)
	if lookupErr == nil {
		hashToCheck = u.Password
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(hashToCheck), []byte(body.Password))

	if lookupErr != nil || compareErr != nil {
		apiError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := issueToken(u, h.cfg.JWTSecret, h.cfg.TokenTTL, time.Now())
	if err != nil {
		log.Printf("[login] sign token: %v", err)
		apiError(c, http.StatusInternalServerError, "failed to create session")
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(tokenCookie, token, int(h.cfg.TokenTTL.Seconds()), "/", "", h.cfg.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    gin.H{"id": u.ID, "name": u.Name, "email": u.Email, "isAdmin": u.Role == "admin"},
		"token":   token,
	})
}

// logout clears the session cookie. POST /api/logout.
func (h *Handler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(tokenCookie, "", -1, "/", "", h.cfg.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// authMiddleware resolves the caller once per request. The JWT comes from
// the Bearer header or, failing that, the session cookie. On success
// user_id and is_admin are set on the context for downstream handlers.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			apiError(c, http.StatusUnauthorized, "missing credentials")
			c.Abort()
			return
		}

		claims, err := parseToken(token, h.cfg.JWTSecret)
		if err != nil {
			apiError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("is_admin", claims.IsAdmin)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(tokenCookie); err == nil {
		return cookie
	}
	return ""
}

// adminMiddleware must run after authMiddleware.
func adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("is_admin") {
			apiError(c, http.StatusForbidden, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// authRateLimiter throttles login/register attempts per client IP.
func (h *Handler) authRateLimiter() gin.HandlerFunc {
	perMin := h.cfg.AuthRatePerMin
	if perMin <= 0 {
		perMin = 10
	}
	return limit.NewRateLimiter(func(c *gin.Context) string {
		return c.ClientIP()
	}, func(c *gin.Context) (*rate.Limiter, time.Duration) {
		return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin), time.Hour
	}, func(c *gin.Context) {
		apiError(c, http.StatusTooManyRequests, "too many requests")
		c.Abort()
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
