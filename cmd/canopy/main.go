package main

import (
	"os"

	"github.com/spf13/cobra"

	"canopy/internal/interfaces/cli/migrate"
	"canopy/internal/interfaces/cli/server"
	"canopy/internal/interfaces/cli/tenant"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "canopy",
		Short: "Canopy - multi-tenant SaaS backend",
		Long:  `Canopy is a multi-tenant SaaS backend built around PostgreSQL row-level security: every request is bound to exactly one tenant and every scoped query is filtered in the database.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		tenant.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
