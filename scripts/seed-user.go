package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/larder/larder/internal/auth"
	"github.com/larder/larder/internal/repository"
	"github.com/larder/larder/internal/service"
	"github.com/larder/larder/migrations"
)

type output struct {
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		jwtSecret   = flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "HS256 signing secret shared with the API")
		username    = flag.String("username", "chef", "Username to create")
		email       = flag.String("email", "chef@larder.local", "User email")
		password    = flag.String("password", "Larder#Seed1", "User password")
		ttl         = flag.Duration("ttl", 24*time.Hour, "Access token lifetime")
		migrate     = flag.Bool("migrate", false, "Apply migrations before seeding")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if *jwtSecret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL, 2)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if *migrate {
		if _, err := repo.Migrate(ctx, migrations.FS); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	accounts := service.NewAccountService(repo, auth.NewTokenIssuer(*jwtSecret, *ttl), nil, nil, logger)

	// An existing account is reused as long as the password still matches.
	_, err = accounts.Register(ctx, service.RegisterInput{
		Username: *username,
		Email:    *email,
		Password: *password,
	})
	if err != nil && !errors.Is(err, service.ErrUsernameExists) && !errors.Is(err, service.ErrEmailExists) {
		fmt.Fprintln(os.Stderr, "register user:", err)
		os.Exit(1)
	}

	login, err := accounts.Login(ctx, *email, *password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue token:", err)
		os.Exit(1)
	}

	out := output{
		UserID:      login.User.ID,
		Username:    login.User.Username,
		Email:       login.User.Email,
		AccessToken: login.Token.Token,
		ExpiresAt:   login.Token.ExpiresAt,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.AccessToken)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}
