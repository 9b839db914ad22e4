package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/mnledger/internal/ledger"
	"github.com/odyssey-erp/mnledger/internal/shared"
)

var flagAbove float64

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Print budget, utilization and remaining balance per cost area",
	RunE:  runLedger,
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3AA99F")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	warnStyle   = numberStyle.Foreground(lipgloss.Color("#DA702C"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#575653"))
)

func init() {
	ledgerCmd.Flags().Float64Var(&flagAbove, "above", 0, "Only show cost areas at or above this utilization percent")
	rootCmd.AddCommand(ledgerCmd)
}

func runLedger(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	svc := ledger.NewService(ledger.NewRepository(e.pool), nil, e.logger)
	status, err := svc.Recompute(ctx)
	if err != nil {
		return err
	}
	if flagAbove > 0 {
		status = onlyAbove(status, flagAbove)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderLedger(status, e.cfg.UtilizationAlertPct))
	return nil
}

// onlyAbove keeps the areas at or above pct and sums the totals over them.
func onlyAbove(status ledger.Status, pct float64) ledger.Status {
	status.Areas = ledger.Above(status, pct)
	status.Totals = ledger.TotalsOf(status.Areas)
	return status
}

// renderLedger draws the ledger as a bordered table with a totals footer.
// Rows at or above alertPct are highlighted.
func renderLedger(status ledger.Status, alertPct float64) string {
	if len(status.Areas) == 0 {
		return "  No cost areas."
	}
	rows := make([][]string, 0, len(status.Areas)+1)
	flagged := make(map[int]bool)
	for i, area := range status.Areas {
		rows = append(rows, []string{
			area.CostArea,
			area.Department,
			shared.FormatAmount(area.TotalBudget),
			shared.FormatAmount(area.Utilized),
			shared.FormatAmount(area.Approved),
			shared.FormatAmount(area.Remaining),
			fmt.Sprintf("%.1f%%", area.UtilizationPct),
		})
		if area.TotalBudget > 0 && area.UtilizationPct >= alertPct {
			flagged[i] = true
		}
	}
	t := status.Totals
	rows = append(rows, []string{
		"TOTAL", "",
		shared.FormatAmount(t.TotalBudget),
		shared.FormatAmount(t.Utilized),
		shared.FormatAmount(t.Approved),
		shared.FormatAmount(t.Remaining),
		fmt.Sprintf("%.1f%%", t.UtilizationPct),
	})
	footer := len(rows) - 1

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("Cost Area", "Department", "Budget", "Utilized", "Approved", "Remaining", "Used").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col < 2:
				if row == footer {
					return cellStyle.Bold(true)
				}
				return cellStyle
			case flagged[row]:
				return warnStyle
			case row == footer:
				return numberStyle.Bold(true)
			default:
				return numberStyle
			}
		})

	var b strings.Builder
	b.WriteString(tbl.Render())
	if len(flagged) > 0 {
		fmt.Fprintf(&b, "\n  %d cost area(s) at or above %.0f%% utilization", len(flagged), alertPct)
	}
	return b.String()
}
