package main

import (
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Conceptual-Machines/magda-midigen/internal/config"
)

const sentryFlushTimeout = 2 * time.Second

// initSentry configures error tracking and returns the flush to run on exit
func initSentry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
		return func() {}
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          "magda-midigen@" + releaseVersion,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		EnableLogs:       true,
		Debug:            !cfg.IsProduction(),
	}); err != nil {
		log.Printf("Failed to initialize Sentry: %v", err)
		return func() {}
	}

	log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
	return func() { sentry.Flush(sentryFlushTimeout) }
}
