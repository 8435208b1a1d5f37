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

	"github.com/google/uuid"

	"github.com/plazapos/contable/internal/coa"
	"github.com/plazapos/contable/internal/config"
	"github.com/plazapos/contable/internal/dictionary"
	"github.com/plazapos/contable/internal/httpapi"
	"github.com/plazapos/contable/internal/ledger"
	"github.com/plazapos/contable/internal/storage/memory"
	pgstore "github.com/plazapos/contable/internal/storage/postgres"
)

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

	var store httpapi.Store
	var closeFn func()

	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = pg.Close
		if cfg.DevSeed {
			businessID := uuid.New()
			if err := pg.SeedBusiness(ctx, businessID); err != nil {
				logger.Error("dev seed failed", "err", err)
			} else if ids, err := seedChart(ctx, pg, businessID); err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logDevSeed(logger, "postgres", businessID, ids)
				printDevSeedBanner(businessID, ids)
			}
		}
		store = pg
		logger.Info("storage backend: postgres")
	} else {
		// Default to the in-memory store with the standard chart seeded.
		mem := memory.New()
		businessID := uuid.New()
		mem.SeedBusiness(businessID)
		ids, err := seedChart(ctx, mem, businessID)
		if err != nil {
			logger.Error("dev seed failed", "err", err)
			os.Exit(1)
		}
		logDevSeed(logger, "memory", businessID, ids)
		printDevSeedBanner(businessID, ids)
		store = mem
		logger.Info("storage backend: memory")
	}

	srv := httpapi.New(store, logger, httpapi.Options{
		ReportRateLimit:  cfg.ReportRateLimit,
		ReportRateWindow: cfg.ReportRateWindow,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("accounting service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// chartWriter is satisfied by both storage backends.
type chartWriter interface {
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
}

// seedChart inserts the default chart of accounts for the business and
// returns the ids of the well-known detail accounts by code. The chart is
// ordered parents-first, so parent ids resolve as the walk proceeds.
func seedChart(ctx context.Context, w chartWriter, businessID uuid.UUID) (map[string]uuid.UUID, error) {
	byCode := make(map[string]uuid.UUID)
	for _, def := range dictionary.DefaultChart() {
		acc := ledger.Account{
			ID:         uuid.New(),
			BusinessID: businessID,
			Code:       def.Code,
			Name:       def.Name,
			Type:       def.Type,
			Nature:     ledger.NatureFor(def.Type),
			Level:      coa.Level(def.Code),
			Detail:     def.Detail,
			Active:     true,
		}
		if parentCode := coa.Parent(def.Code); parentCode != "" {
			parentID, ok := byCode[parentCode]
			if !ok {
				return nil, fmt.Errorf("seed chart: missing parent %s for %s", parentCode, def.Code)
			}
			acc.ParentID = &parentID
		}
		created, err := w.CreateAccount(ctx, acc)
		if err != nil {
			return nil, fmt.Errorf("seed chart: %s: %w", def.Code, err)
		}
		byCode[created.Code] = created.ID
	}
	return map[string]uuid.UUID{
		dictionary.CodeCash:        byCode[dictionary.CodeCash],
		dictionary.CodeBank:        byCode[dictionary.CodeBank],
		dictionary.CodeSalesIncome: byCode[dictionary.CodeSalesIncome],
	}, nil
}

// logDevSeed emits structured logs with useful ids.
func logDevSeed(l *slog.Logger, backend string, businessID uuid.UUID, ids map[string]uuid.UUID) {
	l.Info("DEV seed ("+backend+")",
		"business_id", businessID.String(),
		"cash_account_id", ids[dictionary.CodeCash].String(),
		"bank_account_id", ids[dictionary.CodeBank].String(),
		"sales_account_id", ids[dictionary.CodeSalesIncome].String(),
	)
}

// printDevSeedBanner prints a banner to stdout for easy copy/paste of ids.
func printDevSeedBanner(businessID uuid.UUID, ids map[string]uuid.UUID) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("business_id: %s\n", businessID.String())
	fmt.Printf("cash_account_id (%s): %s\n", dictionary.CodeCash, ids[dictionary.CodeCash].String())
	fmt.Printf("bank_account_id (%s): %s\n", dictionary.CodeBank, ids[dictionary.CodeBank].String())
	fmt.Printf("sales_account_id (%s): %s\n", dictionary.CodeSalesIncome, ids[dictionary.CodeSalesIncome].String())
	fmt.Println("==================================================")
}

// parseLogLevel maps config values to slog levels.
func parseLogLevel(s string) slog.Leveler {
	switch strings.ToLower(s) {
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

func buildLogger(cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)
	if strings.ToLower(strings.TrimSpace(cfg.LogFormat)) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
