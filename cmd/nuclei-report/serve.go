package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/sloppy/nucleireport/internal/web"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Browse archived runs in a web viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, settings, err := c.openArchive(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			addr := settings.ServeAddr
			logger, err := c.logger(settings)
			if err != nil {
				return err
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           web.NewServer(database, settings.Locale, logger).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}()

			fmt.Fprintf(c.out, "listening on http://%s\n", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("db", "", "SQLite archive")
	cmd.Flags().String("locale", "", "table header language: en or zh (default en)")
	cmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8080)")
	return cmd
}
