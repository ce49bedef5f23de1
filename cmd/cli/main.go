package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/relist-market/backend/internal/database"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relist",
	Short: "Relist admin CLI - operate on the marketplace database",
	Long: `Relist admin CLI provides maintenance commands for operators:
promoting admins, inspecting marketplace stats and repairing cached counters.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "Warning: .env file not found, using system environment variables")
		}
		return database.Initialize()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = database.Close()
	},
}

func init() {
	rootCmd.AddCommand(promoteAdminCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(recountCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
