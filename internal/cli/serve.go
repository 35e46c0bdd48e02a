package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/matzehuels/uimigrate/internal/server"
	"github.com/matzehuels/uimigrate/pkg/buildinfo"
	"github.com/matzehuels/uimigrate/pkg/ledger"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		base       string
		ledgerPath string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve migration progress and dependency graphs over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := c.openLedgerStore(ctx, cfg, ledgerPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if base == "" {
				l, err := ledger.Open(ctx, store)
				if err != nil {
					return err
				}
				if base, err = resolverBase("", l.SourceRoot()); err != nil {
					return err
				}
			}
			resolver, err := c.newResolver(cfg, base)
			if err != nil {
				return err
			}

			srv := server.New(server.Options{Store: store, Resolver: resolver, Logger: loggerFromContext(ctx)})
			printInfo("Serving on http://%s", addr)
			printDetail("%s", buildinfo.String())
			printDetail("Ledger: %s", store.Location())
			err = srv.ListenAndServe(ctx, addr)
			if errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&base, "base", "", "directory unit paths are resolved against (default: the ledger's source root, else the working directory)")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "ledger file (default from config)")
	return cmd
}
