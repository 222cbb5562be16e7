package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	log.SetPrefix("nourishmate-api: ")

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pool, err := getDBPool(context.Background(), cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	router := gin.Default()
	router.SetTrustedProxies(nil)
	router.Use(cors.New(corsConfig(cfg)))

	newHandler(pool, cfg).registerRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("server stopped")
}

// corsConfig allows the configured frontend origins to send the session
// cookie or a Bearer token.
func corsConfig(cfg *config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowOrigins = cfg.AllowedOrigins
	c.AllowCredentials = true
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", mealOperationHeader)
	return c
}
