// Package cli implements mnctl, the operator command line for the MN ledger.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/mnledger/internal/app"
	"github.com/odyssey-erp/mnledger/internal/platform/db"
)

var (
	flagTimeout time.Duration
	flagDSN     string
)

var rootCmd = &cobra.Command{
	Use:           "mnctl",
	Short:         "Operator tooling for the MN budget ledger",
	Long:          "Apply the schema, inspect the ledger, manage users and trigger background jobs.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mnctl: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", time.Minute, "Deadline for the whole command")
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", "", "PostgreSQL DSN (defaults to PG_DSN)")
}

// env bundles what every command needs once configuration is loaded.
type env struct {
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), flagTimeout)
}

func loadEnv(ctx context.Context) (*env, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagDSN != "" {
		cfg.PGDSN = flagDSN
	}
	pool, err := db.New(ctx, cfg.PGDSN, 2)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: app.NewLogger(cfg), pool: pool}, nil
}

func (e *env) Close() {
	if e != nil && e.pool != nil {
		e.pool.Close()
	}
}
