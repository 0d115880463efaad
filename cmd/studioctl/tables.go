package main

import (
	"fmt"

	"studio-backend/internal/model"

	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Manage DynamoDB tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var tablesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create every missing table and index",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd)
		if err != nil {
			return err
		}

		created, err := db.Client.EnsureTables(cmd.Context(), model.Schema())
		if err != nil {
			return err
		}
		if len(created) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "all tables already exist")
			return nil
		}
		for _, name := range created {
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", name)
		}
		return nil
	},
}

func init() {
	tablesCmd.AddCommand(tablesCreateCmd)
	rootCmd.AddCommand(tablesCmd)
}
