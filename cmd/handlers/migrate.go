package handlers

import (
	"context"
	"fmt"

	"enhancer/internal/config"
	"enhancer/internal/logger"
	"enhancer/internal/persistence"

	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command for database migrations
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage database schema migrations.

Subcommands:
  up       Apply all pending migrations
  status   Show migration status
  rollback Revert the last applied migration

Applied versions are tracked in the schema_migrations table.

Examples:
  enhancer migrate up
  enhancer migrate status
  enhancer migrate rollback --force`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateRollbackCmd())

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Long: `Apply all pending database migrations in order.

Each migration runs in its own transaction and is recorded in
schema_migrations on success.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd.Context())
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(cmd.Context())
		},
	}
}

func newMigrateRollbackCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert the last applied migration",
		Long: `Run the Down section of the last applied migration and remove its record.

⚠️  WARNING: Rolling back the initial migration drops the articles table and
    every stored article with it.

Use --force to skip the confirmation prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateRollback(cmd.Context(), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func migrationManager() (*persistence.MigrationManager, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	store, err := getStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return persistence.NewMigrationManager(store), func() { _ = store.Close() }, nil
}

func runMigrateUp(ctx context.Context) error {
	log := logger.Get()
	log.Info("Starting database migration")

	migrator, closeStore, err := migrationManager()
	if err != nil {
		return err
	}
	defer closeStore()

	applied, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if applied == 0 {
		fmt.Println("✅ Database is up to date")
		return nil
	}
	fmt.Printf("✅ Applied %d migration(s)\n", applied)
	return nil
}

func runMigrateStatus(ctx context.Context) error {
	migrator, closeStore, err := migrationManager()
	if err != nil {
		return err
	}
	defer closeStore()

	status, err := migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if len(status) == 0 {
		fmt.Println("No migrations found")
		return nil
	}

	fmt.Println("📊 Migration Status")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("%-10s %-10s %s\n", "Version", "Status", "Description")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	pending := 0
	for _, m := range status {
		statusStr, statusIcon := "applied", "✅"
		if !m.Applied {
			statusStr, statusIcon = "pending", "⏳"
			pending++
		}
		fmt.Printf("%-10d %s %-8s %s\n", m.Version, statusIcon, statusStr, m.Description)
	}

	fmt.Println()
	fmt.Printf("Applied: %d | Pending: %d | Total: %d\n", len(status)-pending, pending, len(status))

	if pending > 0 {
		fmt.Println("\nRun 'enhancer migrate up' to apply pending migrations")
	}

	return nil
}

func runMigrateRollback(ctx context.Context, force bool) error {
	if !force {
		fmt.Println("⚠️  WARNING: Rolling back runs the migration's Down section.")
		fmt.Println("Tables it created are dropped together with their data.")
		fmt.Println()
		fmt.Print("Are you sure you want to proceed? (yes/no): ")

		var response string
		if _, err := fmt.Scanln(&response); err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if response != "yes" {
			fmt.Println("Rollback cancelled")
			return nil
		}
	}

	migrator, closeStore, err := migrationManager()
	if err != nil {
		return err
	}
	defer closeStore()

	version, err := migrator.Rollback(ctx)
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	logger.Warn("Migration rolled back", "version", version)
	fmt.Printf("↩️  Rolled back migration %d\n", version)
	return nil
}
