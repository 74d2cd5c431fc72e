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
	"github.com/notes-api-nosql/internal/config"
	"github.com/notes-api-nosql/internal/infrastructure/dynamo"
	jwtinfra "github.com/notes-api-nosql/internal/infrastructure/jwt"
	s3infra "github.com/notes-api-nosql/internal/infrastructure/s3"
	"github.com/notes-api-nosql/internal/infrastructure/smtp"
	"github.com/notes-api-nosql/internal/infrastructure/sns"
	"github.com/notes-api-nosql/internal/pkg/totp"
	transporthttp "github.com/notes-api-nosql/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// MFA key material is boot-critical: a missing or malformed key would
	// otherwise only surface when the first user touches their second factor.
	mfaKey, err := totp.ParseEncryptionKey(cfg.MFAEncryptionKey)
	if err != nil {
		log.Fatalf("MFA_ENCRYPTION_KEY: %v", err)
	}
	if cfg.MFABackupCodeContext == "" {
		log.Fatalf("MFA_BACKUP_CODE_CONTEXT: %v", totp.ErrContextNotSet)
	}

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

	// S3 store for note attachments.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer for security notifications.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	deps := &transporthttp.Deps{
		UserRepo:          dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo:       dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		NoteRepo:          dynamo.NewNoteRepo(dynamoClient, cfg.DynamoTables.Notes),
		CategoryRepo:      dynamo.NewCategoryRepo(dynamoClient, cfg.DynamoTables.Categories),
		FileRepo:          dynamo.NewFileRepo(dynamoClient, cfg.DynamoTables.Files),
		MFACredentialRepo: dynamo.NewMFACredentialRepo(dynamoClient, cfg.DynamoTables.MFACredentials),
		MFAChallengeRepo:  dynamo.NewMFAChallengeRepo(dynamoClient, cfg.DynamoTables.MFAChallenges),
		S3Store:           s3Store,
		Mailer:            mailer,
		SMSSender:         smsSender,
		JWTProvider:       jwtProvider,
		MFAEncryptionKey:  mfaKey,
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
