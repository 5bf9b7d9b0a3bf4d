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

	"github.com/google/uuid"

	"github.com/tinoosan/voucherdesk/internal/books"
	"github.com/tinoosan/voucherdesk/internal/config"
	"github.com/tinoosan/voucherdesk/internal/events"
	"github.com/tinoosan/voucherdesk/internal/events/kafka"
	httpapi "github.com/tinoosan/voucherdesk/internal/httpapi/v1"
	"github.com/tinoosan/voucherdesk/internal/journal"
	"github.com/tinoosan/voucherdesk/internal/ledger"
	"github.com/tinoosan/voucherdesk/internal/service/account"
	"github.com/tinoosan/voucherdesk/internal/service/voucher"
	"github.com/tinoosan/voucherdesk/internal/storage/memory"
	pgstore "github.com/tinoosan/voucherdesk/internal/storage/postgres"
)

// store is what both storage backends provide.
type store interface {
	account.Repo
	account.Writer
	voucher.Repo
	voucher.Writer
	httpapi.ReadyChecker
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	var (
		st      store
		closers []func()
	)
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closers = append(closers, pg.Close)
		st = pg
		logger.Info("storage backend: postgres")
	} else {
		st = memory.New()
		logger.Info("storage backend: memory")
	}

	var pub events.Publisher = events.LogPublisher{Log: logger}
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers)
		closers = append(closers, func() {
			if err := kp.Close(); err != nil {
				logger.Warn("kafka writer close", "err", err)
			}
		})
		pub = kp
		logger.Info("events: kafka", "brokers", strings.Join(cfg.KafkaBrokers, ","), "topic", cfg.KafkaTopic)
	}

	accountSvc := account.New(st, st, cfg.Currency, logger)
	voucherSvc := voucher.New(st, st, voucher.Options{
		Currency:  cfg.Currency,
		Publisher: pub,
		Topic:     cfg.KafkaTopic,
		Logger:    logger,
	})

	var b journal.Books = &books.Local{Accounts: accountSvc, Vouchers: voucherSvc}
	if cfg.BooksAPIURL != "" {
		b = books.NewClient(cfg.BooksAPIURL, cfg.BooksAPIToken)
		logger.Info("journal desk uses remote books", "url", cfg.BooksAPIURL)
	}
	desk := journal.NewDesk(b, journal.Policy{Tolerance: cfg.BalanceTolerance}, logger)

	// The in-memory store always gets a seed; postgres only with DEV_SEED.
	if cfg.DevSeed || cfg.DatabaseURL == "" {
		companyID := uuid.New()
		accs, err := accountSvc.EnsureDefaults(ctx, companyID)
		if err != nil {
			logger.Error("dev seed failed", "err", err)
		} else {
			logger.Info("DEV seed", "company_id", companyID.String(), "ledgers", len(accs))
			printDevSeedBanner(companyID, accs)
		}
	}

	api := httpapi.New(accountSvc, voucherSvc, desk, st, httpapi.AuthConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go sweepSessions(ctx, api, cfg.SessionMaxIdle)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("voucherdesk listening", "addr", srv.Addr)
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
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// sweepSessions drops idle journal forms every maxIdle/4 until ctx ends.
func sweepSessions(ctx context.Context, api *httpapi.Server, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	interval := maxIdle / 4
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			api.SweepSessions(maxIdle)
		}
	}
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(companyID uuid.UUID, accs []ledger.Account) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("company_id: %s\n", companyID.String())
	for _, a := range accs {
		fmt.Printf("%s_ledger_id: %s\n", strings.ToLower(a.Name), a.ID.String())
	}
	fmt.Println("==================================================")
}

// parseLogLevel maps config values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(cfg config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
