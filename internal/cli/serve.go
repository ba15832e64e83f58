package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/repertoire/internal/httpapi"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API",
		Long: "Serve search, listing and write endpoints over HTTP. When the store\n" +
			"cannot be reached, reads are answered from the snapshot document.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.settings.HTTPAddr
			}
			return a.runServe(cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: http.addr)")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, addr string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cache, err := a.openReadPath(ctx)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer closeStore(store)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Store:        store,
		Engine:       a.engine(store, cache),
		Cache:        cache,
		Log:          a.log,
		AllowOrigins: a.settings.AllowOrigins,
	})

	a.log.Info("serving", "addr", addr, "backend", a.settings.Store.Backend, "snapshot", cache.Path())
	if err := httpapi.NewServer(addr, router).Run(ctx); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	a.log.Info("server stopped")
	return nil
}
