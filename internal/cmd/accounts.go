package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/evolutecode/leaddesk/internal/account"
)

const cliTimeout = 30 * time.Second

var (
	newFullName string
	newEmail    string
	newRole     string
	newPassword string
)

func init() {
	accountsCreateCmd.Flags().StringVar(&newFullName, "name", "", "full name")
	accountsCreateCmd.Flags().StringVar(&newEmail, "email", "", "email address")
	accountsCreateCmd.Flags().StringVar(&newRole, "role", string(account.RoleStaff), "role (admin or staff)")
	accountsCreateCmd.Flags().StringVarP(&newPassword, "password", "p", "", "initial password")
	_ = accountsCreateCmd.MarkFlagRequired("email")
	_ = accountsCreateCmd.MarkFlagRequired("password")

	accountsResetCmd.Flags().StringVarP(&newPassword, "password", "p", "", "new password")
	_ = accountsResetCmd.MarkFlagRequired("password")

	accountsCmd.AddCommand(accountsListCmd, accountsCreateCmd, accountsResetCmd, accountsDeactivateCmd, accountsActivateCmd)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

// renderAccounts writes one row per account.
func renderAccounts(out io.Writer, profiles []account.Profile) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"#", "Username", "Name", "Email", "Role", "Active", "Failures", "Locked Until", "Last Login"})
	for i, p := range profiles {
		tw.AppendRow(table.Row{
			i + 1,
			p.Username,
			p.FullName,
			p.Email,
			p.Role,
			p.Active,
			p.FailedAttempts,
			formatOptionalTime(p.LockedUntil),
			formatOptionalTime(p.LastLogin),
		})
	}
	tw.Render()
}

// withVerifier runs f against the configured database.
func withVerifier(f func(ctx context.Context, v *account.Verifier) error) error {
	v, database, err := openVerifier()
	if err != nil {
		return err
	}
	defer closeStore(database)

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	return f(ctx, v)
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "manage staff accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "list every account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVerifier(func(ctx context.Context, v *account.Verifier) error {
			profiles, err := v.ListAccounts(ctx)
			if err != nil {
				return err
			}
			renderAccounts(os.Stdout, profiles)
			return nil
		})
	},
}

var accountsCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVerifier(func(ctx context.Context, v *account.Verifier) error {
			p, err := v.CreateAccount(ctx, account.NewAccount{
				Username: args[0],
				Password: newPassword,
				FullName: newFullName,
				Email:    newEmail,
				Role:     account.Role(newRole),
			})
			if err != nil {
				return err
			}
			fmt.Printf("created %s (%s)\n", p.Username, p.Role)
			return nil
		})
	},
}

var accountsResetCmd = &cobra.Command{
	Use:   "reset-password <username>",
	Short: "set a new password and clear any lock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVerifier(func(ctx context.Context, v *account.Verifier) error {
			if err := v.AdminResetPassword(ctx, args[0], newPassword); err != nil {
				return err
			}
			fmt.Printf("password for %s reset\n", args[0])
			return nil
		})
	},
}

var accountsDeactivateCmd = &cobra.Command{
	Use:   "deactivate <username>",
	Short: "stop an account from logging in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVerifier(func(ctx context.Context, v *account.Verifier) error {
			if err := v.Deactivate(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("%s deactivated\n", args[0])
			return nil
		})
	},
}

var accountsActivateCmd = &cobra.Command{
	Use:   "activate <username>",
	Short: "allow a deactivated account to log in again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVerifier(func(ctx context.Context, v *account.Verifier) error {
			if err := v.Activate(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("%s activated\n", args[0])
			return nil
		})
	},
}
