package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/learnhub/lms-backend/internal/catalog"
	"github.com/learnhub/lms-backend/internal/config"
	"github.com/learnhub/lms-backend/internal/database"
	"github.com/learnhub/lms-backend/internal/logger"
	"github.com/learnhub/lms-backend/internal/service"
)

// issue-token signs a bearer token for local testing against a running server.
func main() {
	var (
		userID string
		role   string
		verify bool
	)
	flag.StringVar(&userID, "user", "", "LMS user id (required)")
	flag.StringVar(&role, "role", string(service.RoleStudent), "Token role: student or educator")
	flag.BoolVar(&verify, "verify", false, "Look the user up in the LMS catalog first")
	flag.Parse()

	if userID == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		flag.Usage()
		os.Exit(2)
	}
	r := service.Role(role)
	if r != service.RoleStudent && r != service.RoleEducator {
		fmt.Fprintf(os.Stderr, "Error: unknown role %q\n", role)
		os.Exit(2)
	}

	// ─── Load Configuration ────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration:\n%v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr so stdout carries only the token.
	log := logger.New(os.Stderr, cfg.LogLevel)

	// ─── Optional catalog check ────────────────────────────────────────
	if verify {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, db, err := database.NewMongoDatabase(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		user, err := catalog.NewMongoCatalog(db).GetUser(ctx, userID)
		if err != nil {
			log.Fatal().Err(err).Str("user_id", userID).Msg("User lookup failed")
		}
		fmt.Fprintf(os.Stderr, "User: %s <%s>\n", user.Name, user.Email)
	}

	token, err := service.NewAuthService(cfg).IssueToken(userID, r)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}
	fmt.Println(token)
}
