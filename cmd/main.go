package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tinoosan/bookkeeper/internal/books"
	"github.com/tinoosan/bookkeeper/internal/httpapi"
	"github.com/tinoosan/bookkeeper/internal/service/transfer"
	"github.com/tinoosan/bookkeeper/internal/storage/memory"
	pgstore "github.com/tinoosan/bookkeeper/internal/storage/postgres"
	"github.com/tinoosan/bookkeeper/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	currency := strings.ToUpper(strings.TrimSpace(os.Getenv("BOOKKEEPER_CURRENCY")))
	if currency == "" {
		currency = "USD"
	}
	// Fail fast on an unknown currency code before any request arrives.
	_ = books.MustAmount(currency, 0)

	var store httpapi.Store
	var closeFn func()

	switch {
	case strings.TrimSpace(os.Getenv("DATABASE_URL")) != "":
		// Server profile: Postgres when DATABASE_URL is provided
		pg, err := pgstore.Open(ctx, strings.TrimSpace(os.Getenv("DATABASE_URL")), currency)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		store = pg
		closeFn = pg.Close
		if devSeedEnabled() {
			c, u, err := pg.SeedDev(ctx)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logDevSeed(logger, "postgres", c, u)
				printDevSeedBanner(c, u)
			}
		}
		logger.Info("storage backend: postgres")
	case strings.TrimSpace(os.Getenv("BOOKKEEPER_DB")) != "":
		// Desktop profile: single sqlite file
		db, err := sqlite.Open(strings.TrimSpace(os.Getenv("BOOKKEEPER_DB")), currency)
		if err != nil {
			logger.Error("failed to open sqlite database", "err", err)
			os.Exit(1)
		}
		store = db
		closeFn = func() { _ = db.Close() }
		logger.Info("storage backend: sqlite", "path", os.Getenv("BOOKKEEPER_DB"))
	default:
		mem := memory.New(currency)
		store = mem
		if devSeedEnabled() {
			c, u := seedMemory(ctx, mem, currency, logger)
			logDevSeed(logger, "memory", c, u)
			printDevSeedBanner(c, u)
		}
		logger.Info("storage backend: memory")
	}

	addr := strings.TrimSpace(os.Getenv("ADDR"))
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.New(store, logger).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bookkeeper service listening", "addr", srv.Addr, "currency", currency)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

func devSeedEnabled() bool {
	dev := strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED")))
	return dev == "1" || dev == "true" || dev == "yes"
}

// seedMemory inserts a demo company and user plus a couple of transactions so
// the API has data to show immediately.
func seedMemory(ctx context.Context, mem *memory.Store, currency string, logger *slog.Logger) (books.Company, books.User) {
	c := mem.SeedCompany(books.Company{Name: "Demo Trading Co", Email: "accounts@demo.test"})
	u := mem.SeedUser(books.User{CompanyID: c.ID, Name: "Demo Clerk", Role: "bookkeeper"})
	svc := transfer.New(mem, mem, mem, currency)
	if _, err := svc.Deposit(ctx, books.CompanyRef(c.ID), books.MustAmount(currency, 100000), "Opening float"); err != nil {
		logger.Error("dev seed deposit failed", "err", err)
	}
	if _, err := svc.Create(ctx, books.Transaction{
		Date:        time.Now().UTC().Truncate(24 * time.Hour),
		Amount:      books.MustAmount(currency, 25000),
		From:        books.CompanyRef(c.ID),
		To:          books.UserRef(u.ID),
		Description: "Advance",
	}); err != nil {
		logger.Error("dev seed transfer failed", "err", err)
	}
	return c, u
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, backend string, c books.Company, u books.User) {
	l.Info("DEV seed ("+backend+")", "company_id", c.ID, "user_id", u.ID)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(c books.Company, u books.User) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("company_id: %d (%s)\n", c.ID, c.Name)
	fmt.Printf("user_id: %d (%s)\n", u.ID, u.Name)
	fmt.Println("==================================================")
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
