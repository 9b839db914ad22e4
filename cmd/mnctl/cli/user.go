package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/mnledger/internal/shared"
	"github.com/odyssey-erp/mnledger/internal/users"
)

var (
	flagRole     string
	flagPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage ledger users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user; the password is read from stdin when --password is empty",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

func init() {
	userAddCmd.Flags().StringVar(&flagRole, "role", shared.RoleUser, "Role: user, super or administrator")
	userAddCmd.Flags().StringVar(&flagPassword, "password", "", "Initial password")
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	password := flagPassword
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("password required on stdin or via --password")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	svc := users.NewService(users.NewRepository(e.pool))
	user, err := svc.Create(ctx, "mnctl", users.CreateInput{Username: args[0], Password: password, Role: flagRole})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Username, user.Role)
	return nil
}
