package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quizrunner/internal/app"
	internaldb "quizrunner/internal/db"
	"quizrunner/internal/question"

	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cfg := app.LoadConfig()

	cmd := &cobra.Command{
		Use:           "quizrunner",
		Short:         "Timed multiple-choice quiz server with GitHub login",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfg.QuizFile, "quiz", cfg.QuizFile, "path to the quiz document (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "database driver: sqlite or postgres")
	cmd.PersistentFlags().StringVar(&cfg.DBDSN, "db", cfg.DBDSN, "database DSN (defaults to <quiz>.db for sqlite)")
	cmd.AddCommand(newServeCmd(&cfg))
	cmd.AddCommand(newExportCmd(&cfg))
	return cmd
}

// openStore loads the question bank and opens the database it is scored
// against. The bank is loaded first so a malformed quiz fails before any
// file is created.
func openStore(ctx context.Context, cfg app.Config) (*question.Bank, *sql.DB, internaldb.Driver, error) {
	bank, err := question.LoadFile(cfg.QuizFile)
	if err != nil {
		return nil, nil, "", err
	}

	driver, err := internaldb.ParseDriver(cfg.DBDriver)
	if err != nil {
		return nil, nil, "", err
	}
	dsn := cfg.DSN()
	if driver == internaldb.DriverPostgres && cfg.DBDSN == "" {
		return nil, nil, "", fmt.Errorf("postgres driver needs --db or DB_DSN")
	}

	conn, err := internaldb.OpenWithConfig(ctx, driver, dsn, internaldb.Config{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
	})
	if err != nil {
		return nil, nil, "", err
	}
	return bank, conn, driver, nil
}
