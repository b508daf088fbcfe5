// Command depicts searches Wikimedia Commons categories and shows what each
// file depicts, as a CLI or as an HTTP service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/commons-depicts/internal/httpapi"
	"github.com/Sternrassler/commons-depicts/pkg/logging"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "depicts",
		Short:         "Browse Wikimedia Commons categories by depicted subject",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml if present)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newSearchCmd(&configPath))
	root.AddCommand(newDetailCmd(&configPath))
	root.AddCommand(newSuggestCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var requestTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(ctx, a, requestTimeout)
		},
	}
	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", 30*time.Second, "upper bound for one API request")
	return cmd
}

func serve(ctx context.Context, a *app, requestTimeout time.Duration) error {
	logger := logging.NewLogger("server")

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           httpapi.New(a.search, a.health, requestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("user_agent", a.cfg.Client.UserAgent).
			Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newSearchCmd(configPath *string) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "search <category>",
		Short: "Search a category and print one page of enriched results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.search.Search(cmd.Context(), args[0], page)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number (1-based)")
	return cmd
}

func newDetailCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "detail <page-id>",
		Short: "Show one file with its depicts claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			item, err := a.search.GetDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}
}

func newSuggestCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Suggest entities whose label starts with prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			matches, err := a.search.Suggest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, m := range matches {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", m.EntityID, m.Label, m.Description)
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
