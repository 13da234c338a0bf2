package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/records/internal/config"
	"github.com/ehr/records/internal/platform/db"
	"github.com/ehr/records/internal/platform/sandbox"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "records-server",
		Short: "Multi-tenant clinical records API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// newLogger builds the process logger. Development gets human-readable output.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(level)
}

// poolConfig validates cfg and derives the connection pool settings from it.
func poolConfig(cfg *config.Config) (db.PoolConfig, error) {
	if err := cfg.Validate(); err != nil {
		return db.PoolConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, nil
}

func migrationSource(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return db.Migrations()
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pc, err := poolConfig(cfg)
			if err != nil {
				return err
			}
			pool, err := db.NewPool(ctx, pc)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrationSource(dir)).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to a migrations directory (defaults to the embedded set)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			pc, err := poolConfig(cfg)
			if err != nil {
				return err
			}
			pool, err := db.NewPool(ctx, pc)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationSource(dir)).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to a migrations directory (defaults to the embedded set)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	defaults := sandbox.DefaultSeedConfig()
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load synthetic hospitals, staff, patients and test results",
	}
	flags := cmd.Flags()
	flags.Int("hospitals", defaults.HospitalCount, "Number of hospitals")
	flags.Int("doctors", defaults.DoctorsPerHospital, "Doctors per hospital")
	flags.Int("patients", defaults.PatientsPerHospital, "Patients per hospital")
	flags.Int("results", defaults.ResultsPerPatient, "Test results per patient")
	flags.String("password", defaults.Password, "Password for every seeded account")
	flags.Int64("seed", 1, "Random seed")
	flags.Int("year", 0, "Registration year used in patient identifiers (defaults to the current year)")
	flags.Bool("dry-run", false, "Print the generated dataset as JSON without writing it")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		sc := defaults
		sc.HospitalCount, _ = flags.GetInt("hospitals")
		sc.DoctorsPerHospital, _ = flags.GetInt("doctors")
		sc.PatientsPerHospital, _ = flags.GetInt("patients")
		sc.ResultsPerPatient, _ = flags.GetInt("results")
		sc.Password, _ = flags.GetString("password")
		sc.Seed, _ = flags.GetInt64("seed")
		sc.Year, _ = flags.GetInt("year")
		dryRun, _ := flags.GetBool("dry-run")

		if dryRun {
			ds := sandbox.NewSeeder(sc, sandbox.Services{}, nil).Generate()
			return sandbox.ExportJSON(cmd.OutOrStdout(), ds)
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		ctx := logger.WithContext(context.Background())

		pc, err := poolConfig(cfg)
		if err != nil {
			return err
		}
		pool, err := db.NewPool(ctx, pc)
		if err != nil {
			return err
		}
		defer pool.Close()

		svc := newServices(pool)
		seeder := sandbox.NewSeeder(sc, svc.seedServices(), func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.InTx(ctx, pool, fn)
		})
		res, err := seeder.Run(ctx)
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
		logger.Info().
			Int("hospitals", res.Hospitals).
			Int("users", res.Users).
			Int("patients", res.Patients).
			Int("test_types", res.TestTypes).
			Int("test_results", res.TestResults).
			Dur("duration", res.Duration.Round(time.Millisecond)).
			Msg("seed complete")
		return nil
	}
	return cmd
}
