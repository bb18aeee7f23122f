package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	usersCmd = &cobra.Command{
		Use:   "users",
		Short: "Credential related commands",
	}

	hashCmd = &cobra.Command{
		Use:   "hash <password>",
		Short: "Print the bcrypt hash to put under auth.users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}

	listUsersCmd = &cobra.Command{
		Use:   "ls",
		Short: "List the configured user names",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			for name := range cfg.Auth.Users {
				fmt.Fprintln(cmd.OutOrStdout(), " - "+strings.ToLower(name))
			}
			return nil
		},
	}
)

func registerUserCommands() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(hashCmd, listUsersCmd)
}
