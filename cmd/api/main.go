package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/identity-platform/internal/config"
	"github.com/identity-platform/internal/infrastructure/dynamo"
	jwtinfra "github.com/identity-platform/internal/infrastructure/jwt"
	"github.com/identity-platform/internal/infrastructure/profile"
	redisinfra "github.com/identity-platform/internal/infrastructure/redis"
	"github.com/identity-platform/internal/infrastructure/smtp"
	snsinfra "github.com/identity-platform/internal/infrastructure/sns"
	transporthttp "github.com/identity-platform/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// Redis one-time-code store.
	redisClient, err := redisinfra.NewClient(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	// JWT provider. A missing or unparsable key pair is fatal: the service
	// cannot issue or verify anything without it.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	// SNS alert publisher is optional; alerts fall back to logs without it.
	var alerts snsinfra.AlertPublisher
	if cfg.AlertTopicARN != "" {
		if p, err := snsinfra.NewPublisher(cfg); err == nil {
			alerts = p
		} else {
			log.Printf("WARN: SNS alert publisher not available: %v", err)
		}
	}

	deps := &transporthttp.Deps{
		IdentityRepo:  dynamo.NewIdentityRepo(dynamoClient, cfg.DynamoTables.Identities),
		CodeStore:     redisinfra.NewCodeStore(redisClient, cfg.CodeHashKey),
		ProfileClient: profile.NewClient(cfg.ProfileServices),
		Mailer:        smtp.NewMailer(cfg),
		Alerts:        alerts,
		JWTProvider:   jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
