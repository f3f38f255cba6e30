package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pomstack/pkg/api"
	"github.com/matzehuels/pomstack/pkg/config"
)

// newServeCmd creates the serve command: run the resolution HTTP API.
func newServeCmd(configPath *string) *cobra.Command {
	var (
		addr         string
		settingsPath string
		profiles     []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve descriptor resolution over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			resolver, cleanup, err := buildResolver(ctx, *configPath, settingsPath, profiles)
			if err != nil {
				return err
			}
			defer cleanup()

			if addr == "" {
				cfg, err := config.Load(*configPath)
				if err != nil {
					return err
				}
				addr = cfg.Server.Addr
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           api.NewServer(resolver, api.WithLogger(logger)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return err
				}
				return ctx.Err()
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&settingsPath, "settings", "", "path to an external settings document")
	cmd.Flags().StringArrayVarP(&profiles, "profile", "p", nil, "activate a profile (repeatable)")
	return cmd
}
