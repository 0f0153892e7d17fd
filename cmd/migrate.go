package cmd

import (
	"fmt"
	"strconv"

	"github.com/vibast-solutions/ms-go-shop/migrations"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		runner, err := newMigrationRunner()
		if err != nil {
			return err
		}
		defer runner.Close()

		if err = runner.Up(); err != nil {
			return err
		}
		return printSchemaVersion(runner)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [n]",
	Short: "Roll back the last n migrations (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid number of migrations %q", args[0])
			}
			steps = n
		}

		runner, err := newMigrationRunner()
		if err != nil {
			return err
		}
		defer runner.Close()

		if err = runner.Down(steps); err != nil {
			return err
		}
		return printSchemaVersion(runner)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		runner, err := newMigrationRunner()
		if err != nil {
			return err
		}
		defer runner.Close()

		return printSchemaVersion(runner)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func newMigrationRunner() (*migrations.Runner, error) {
	db, err := openDatabaseFromEnv()
	if err != nil {
		return nil, err
	}

	runner, err := migrations.NewRunner(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return runner, nil
}

func printSchemaVersion(runner *migrations.Runner) error {
	version, dirty, err := runner.Version()
	if err != nil {
		return err
	}

	fmt.Printf("schema_version: %d\n", version)
	if dirty {
		fmt.Println("dirty: true")
	}
	return nil
}
