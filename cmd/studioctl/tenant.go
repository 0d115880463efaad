package main

import (
	"fmt"

	"studio-backend/internal/directory"
	tenantservice "studio-backend/internal/service/tenant"

	"github.com/spf13/cobra"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var tenantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a workspace and its owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		slug, _ := flags.GetString("slug")
		ownerEmail, _ := flags.GetString("owner-email")
		ownerName, _ := flags.GetString("owner-name")

		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		svc := tenantservice.New(directory.NewDynamoRepository(db), nil)
		result, err := svc.Signup(cmd.Context(), tenantservice.SignupParams{
			Name:       name,
			Slug:       slug,
			OwnerEmail: ownerEmail,
			OwnerName:  ownerName,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "tenant      %s (%s)\n", result.Tenant.TenantID, result.Tenant.Slug)
		fmt.Fprintf(out, "membership  %s\n", result.Membership.MembershipID)
		return nil
	},
}

func init() {
	tenantCreateCmd.Flags().String("name", "", "workspace name")
	tenantCreateCmd.Flags().String("slug", "", "workspace slug, derived from the name when empty")
	tenantCreateCmd.Flags().String("owner-email", "", "email of the first admin")
	tenantCreateCmd.Flags().String("owner-name", "", "name of the first admin")
	_ = tenantCreateCmd.MarkFlagRequired("name")
	_ = tenantCreateCmd.MarkFlagRequired("owner-email")
	_ = tenantCreateCmd.MarkFlagRequired("owner-name")

	tenantCmd.AddCommand(tenantCreateCmd)
	rootCmd.AddCommand(tenantCmd)
}
