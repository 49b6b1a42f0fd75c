package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"canopy/internal/infrastructure/config"
	"canopy/internal/infrastructure/database"
	"canopy/internal/infrastructure/migration"
	"canopy/internal/shared/logger"
)

var (
	env         string
	configPath  string
	scriptsPath string
)

// NewCommand builds the migrate command tree. Migrations always run on
// the maintenance connection so DDL and cross-tenant backfills are not
// blocked by row-level security.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back and inspect schema migrations. Runs under the maintenance (BYPASSRLS) database role.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config directory (default: ./configs)")
	cmd.PersistentFlags().StringVar(&scriptsPath, "scripts", "./scripts/migrations", "Path to migration scripts")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newVersionCommand(),
		newCreateCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := setup()
			if err != nil {
				return err
			}
			defer database.Close()
			return runner.Up(database.GetMaintenance())
		},
	}
}

func newDownCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := setup()
			if err != nil {
				return err
			}
			defer database.Close()
			return runner.Down(database.GetMaintenance())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := setup()
			if err != nil {
				return err
			}
			defer database.Close()

			version, dirty, err := runner.Version(database.GetMaintenance())
			if err != nil {
				return err
			}
			fmt.Printf("version: %d dirty: %v\n", version, dirty)
			return nil
		},
	}
}

func newCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new pair of migration files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(strings.ReplaceAll(args[0], " ", "_"))

			entries, err := os.ReadDir(scriptsPath)
			if err != nil {
				return fmt.Errorf("failed to read scripts directory: %w", err)
			}
			next := 1
			for _, e := range entries {
				var seq int
				if _, err := fmt.Sscanf(e.Name(), "%d_", &seq); err == nil && seq >= next {
					next = seq + 1
				}
			}

			for _, direction := range []string{"up", "down"} {
				path := filepath.Join(scriptsPath, fmt.Sprintf("%06d_%s.%s.sql", next, name, direction))
				if err := os.WriteFile(path, nil, 0o644); err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				fmt.Println("created", path)
			}
			return nil
		},
	}
}

func setup() (*migration.Runner, error) {
	cfg, err := config.Load(env, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, env != "production"); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := database.InitMaintenance(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize maintenance connection: %w", err)
	}

	abs, err := filepath.Abs(scriptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scripts path: %w", err)
	}
	return migration.NewRunner(abs), nil
}
