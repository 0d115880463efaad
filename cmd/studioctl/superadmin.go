package main

import (
	"fmt"
	"strings"

	"studio-backend/internal/directory"

	"github.com/spf13/cobra"
)

var superAdminCmd = &cobra.Command{
	Use:   "superadmin",
	Short: "Grant or revoke platform administration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func setSuperAdmin(flag bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		email, err := cmd.Flags().GetString("email")
		if err != nil {
			return err
		}
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			return fmt.Errorf("--email is required")
		}

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		user, err := directory.NewDynamoRepository(db).SetSuperAdmin(cmd.Context(), email, flag)
		if err != nil {
			return fmt.Errorf("update %s: %w", email, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) superAdmin=%t\n", user.Email, user.UserID, user.SuperAdmin)
		return nil
	}
}

var superAdminGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Mark an existing user as a platform administrator",
	RunE:  setSuperAdmin(true),
}

var superAdminRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Remove platform administration from a user",
	RunE:  setSuperAdmin(false),
}

func init() {
	for _, c := range []*cobra.Command{superAdminGrantCmd, superAdminRevokeCmd} {
		c.Flags().String("email", "", "email of the user")
		superAdminCmd.AddCommand(c)
	}
	rootCmd.AddCommand(superAdminCmd)
}
