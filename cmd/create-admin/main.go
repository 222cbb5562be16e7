// CLI tool to create an admin user with a bcrypt-hashed password.
// Admins cannot be created through /api/register.
// Usage: go run ./cmd/create-admin
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "No .env file loaded: %v\n", err)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, os.Getenv("DB_URL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	reader := bufio.NewReader(os.Stdin)
	name := prompt(reader, "Name: ")
	email := strings.ToLower(prompt(reader, "Email: "))
	password := prompt(reader, "Password: ")

	if name == "" || email == "" || len(password) < 8 {
		fmt.Fprintln(os.Stderr, "Name and email are required and the password must be at least 8 characters")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
		os.Exit(1)
	}

	var userID int
	err = conn.QueryRow(ctx,
		`INSERT INTO users (name, email, password, role)
		 VALUES ($1, $2, $3, 'admin') RETURNING id`,
		name, email, string(hash),
	).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			fmt.Fprintf(os.Stderr, "A user with email %s already exists\n", email)
		} else {
			fmt.Fprintf(os.Stderr, "Error creating admin: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("\nAdmin created successfully!\n")
	fmt.Printf("  ID:    %d\n", userID)
	fmt.Printf("  Email: %s\n", email)
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}
