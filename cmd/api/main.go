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

	"github.com/joho/godotenv"

	"github.com/corpdeals-api/internal/config"
	"github.com/corpdeals-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/corpdeals-api/internal/infrastructure/jwt"
	s3infra "github.com/corpdeals-api/internal/infrastructure/s3"
	"github.com/corpdeals-api/internal/infrastructure/smtp"
	"github.com/corpdeals-api/internal/infrastructure/sns"
	transporthttp "github.com/corpdeals-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store for company brand assets.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName, cfg.AWSRegion)

	// SMTP mailer for verification codes.
	mailer := smtp.NewMailer(cfg)

	// SNS security alerts (optional — disabled when no topic is configured).
	var alerts sns.AlertPublisher
	if cfg.SNSAlertTopic != "" {
		if p, err := sns.NewPublisher(cfg); err == nil {
			alerts = p
		} else {
			log.Printf("WARN: SNS alert publisher not available: %v", err)
		}
	}

	deps := &transporthttp.Deps{
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications),
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		CompanyRepo:      dynamo.NewCompanyRepo(dynamoClient, cfg.DynamoTables.Companies),
		AssetStore:       s3Store,
		Mailer:           mailer,
		AlertPublisher:   alerts,
		JWTProvider:      jwtProvider,
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
