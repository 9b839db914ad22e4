package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/mnledger/internal/platform/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and seed the exchange configuration",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := db.Migrate(ctx, e.pool); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
	return nil
}
