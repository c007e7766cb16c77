package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/unclebandit/jobmailer-backend/internal/config"
	"github.com/unclebandit/jobmailer-backend/internal/db"
	"github.com/unclebandit/jobmailer-backend/internal/logger"
	"github.com/unclebandit/jobmailer-backend/internal/repository"
	"github.com/unclebandit/jobmailer-backend/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "mailctl",
	Short: "Operator tool for the job application mailer",
}

var classifyCmd = &cobra.Command{
	Use:   "classify [email...]",
	Short: "Print the company label derived from each address",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, addr := range args {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", addr, service.ExtractCompanyName(addr))
		}
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every send record to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		return withStore(func(_ *config.Config, conn *sql.DB) error {
			svc := &service.ExportService{Repo: repository.NewSendRecordRepository(conn), Clock: clockwork.NewRealClock()}
			wb, err := svc.Export(cmd.Context())
			if err != nil {
				return err
			}
			defer wb.Close()
			if out == "" {
				out = wb.Filename
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()
			if _, err := wb.WriteTo(f); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", wb.Rows, out)
			return nil
		})
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete send records older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(cfg *config.Config, conn *sql.DB) error {
			days := retentionDays(cmd, cfg)
			svc := &service.MailService{
				Repo:  repository.NewSendRecordRepository(conn),
				Clock: clockwork.NewRealClock(),
				Log:   logger.Nop(),
			}
			n, err := svc.Purge(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d records older than %d days\n", n, days)
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the record store schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Run all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrate.Migrate) error {
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrate.Migrate) error {
			if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("rollback failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Rolled back one migration")
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrate.Migrate) error {
			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %d, dirty: %t\n", version, dirty)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().String("out", "", "output path (defaults to the dated export filename)")
	purgeCmd.Flags().Int("days", 0, "delete records created more than this many days ago (defaults to stats.retention_days)")
	seedCmd.Flags().Int("count", 0, "number of sample records to insert (defaults to all samples)")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(classifyCmd, exportCmd, purgeCmd, seedCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// retentionDays prefers an explicit --days over the configured retention window
func retentionDays(cmd *cobra.Command, cfg *config.Config) int {
	if cmd.Flags().Changed("days") {
		days, _ := cmd.Flags().GetInt("days")
		return days
	}
	return cfg.Stats.RetentionDays
}

// withStore opens the configured store, applies the schema and runs fn
func withStore(fn func(cfg *config.Config, conn *sql.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.Migrate(conn, cfg.Database.Driver); err != nil {
		return err
	}
	return fn(cfg, conn)
}

func withMigrator(fn func(m *migrate.Migrate) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	m, err := db.NewMigrator(conn, cfg.Database.Driver)
	if err != nil {
		conn.Close()
		return err
	}
	defer m.Close()
	return fn(m)
}
