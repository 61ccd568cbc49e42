package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and store a session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginEmail == "" {
			return fmt.Errorf("--email is required")
		}

		password := loginPassword
		if password == "" {
			fmt.Fprint(os.Stderr, "Password: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if password == "" {
			return fmt.Errorf("password is required")
		}

		return getApp().Login(cmd.Context(), loginEmail, password)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Logout(cmd.Context())
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the advisor attached to the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Whoami(cmd.Context())
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Advisor email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (prompted when omitted)")
}
