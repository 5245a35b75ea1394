package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizrunner/internal/app"

	"github.com/spf13/cobra"
)

func newServeCmd(cfg *app.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "address to listen on")
	return cmd
}

func runServer(ctx context.Context, cfg app.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	bank, conn, driver, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("loaded quiz %q with %d questions from %s", bank.Name(), bank.Len(), cfg.QuizFile)

	states, closeStates, err := app.NewStateStore(ctx, cfg, time.Now)
	if err != nil {
		return err
	}
	defer closeStates()

	handler := app.NewRouter(cfg, app.Dependencies{
		DB:     conn,
		Driver: driver,
		Bank:   bank,
		States: states,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("quizrunner listening on %s (db driver %s)", cfg.HTTPAddr, driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
