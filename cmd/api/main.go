package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"

	"inbox-digest-go/internal/cache"
	"inbox-digest-go/internal/config"
	"inbox-digest-go/internal/enrich"
	handlerPkg "inbox-digest-go/internal/handler"
	"inbox-digest-go/internal/janitor"
	"inbox-digest-go/internal/mailbox"
	metricsPkg "inbox-digest-go/internal/metrics"
	"inbox-digest-go/internal/router"
	"inbox-digest-go/internal/service"
	sessionPkg "inbox-digest-go/internal/session"
)

func main() {
	// Configure logging
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Inbox Digest Service")

	// Load .env if present, then configuration
	if err := godotenv.Load(); err == nil {
		logrus.Info("Loaded environment from .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	// Initialize metrics
	metrics := metricsPkg.New()

	// Initialize the summary cache
	summaries := cache.New(cfg.Cache.Capacity, cfg.Cache.TTL, metrics)

	// Initialize the enrichment client
	enricher := enrich.NewClient(enrich.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.OpenAI.RequestTimeout,
	}, metrics)

	// Initialize the digest service
	digest := service.NewDigestService(summaries, enricher, metrics)

	// Initialize the mail backend
	var oauthConfig *oauth2.Config
	var imapBox *mailbox.IMAPMailbox
	if cfg.Mailbox.UseIMAP {
		imapBox, err = mailbox.NewIMAPMailbox(cfg.Mailbox.IMAPHost, cfg.Mailbox.IMAPPort, cfg.Mailbox.IMAPUser, cfg.Mailbox.IMAPPassword)
		if err != nil {
			logrus.Fatalf("Failed to create IMAP mailbox: %v", err)
		}
		logrus.Info("Using IMAP for email fetching")
	} else {
		credentials, err := os.ReadFile(cfg.Google.CredentialsFile)
		if err != nil {
			logrus.Fatalf("Failed to read OAuth client credentials: %v", err)
		}
		oauthConfig, err = google.ConfigFromJSON(credentials, gmail.GmailReadonlyScope)
		if err != nil {
			logrus.Fatalf("Failed to parse OAuth client credentials: %v", err)
		}
		oauthConfig.RedirectURL = cfg.Google.RedirectURL
		logrus.Info("Using Gmail API for email fetching")
	}

	// Initialize HTTP handlers
	var sharedMailbox mailbox.Mailbox
	if imapBox != nil {
		sharedMailbox = imapBox
	}
	handlers := handlerPkg.NewHandlers(cfg, oauthConfig, digest, summaries, sessionPkg.NewStore(), sharedMailbox)

	// Setup HTTP server
	r := router.SetupRouter(handlers, cfg)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start the cache janitor
	sweeper := janitor.NewJanitor(cfg.Cache.SweepIntervalMinutes, summaries)
	if err := sweeper.Start(); err != nil {
		logrus.Fatalf("Failed to start cache janitor: %v", err)
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop the janitor
	if err := sweeper.Stop(); err != nil {
		logrus.Errorf("Failed to stop cache janitor: %v", err)
	}
	sweeper.Wait()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	// Close the IMAP connection if one was opened
	if imapBox != nil {
		if err := imapBox.Close(); err != nil {
			logrus.Errorf("Failed to close IMAP mailbox: %v", err)
		}
	}

	logrus.Info("Server stopped gracefully")
}
