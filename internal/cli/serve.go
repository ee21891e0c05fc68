package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/tabula/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the export API over HTTP",
	Long: `Serve the export API over HTTP until interrupted.

Routes:
  GET /api/tenants/{tenantId}/databases/{databaseId}/tables/{tableId}/export
  GET /healthz

Requests need a bearer token signed with auth.jwt_secret unless the secret
is empty.

Examples:
  tbl serve
  tbl serve --listen :9000 --db ./crm.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getConfig()
		if strings.TrimSpace(serveListen) != "" {
			c.Server.Listen = serveListen
		}

		store, err := openStore(c)
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		defer store.Close()

		clock := clockwork.NewRealClock()
		exporter, err := newExporter(c, store, clock)
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		loc, _ := c.Location()

		if strings.TrimSpace(c.Auth.JWTSecret) == "" {
			getLogger().Warn("auth.jwt_secret is empty, every request is allowed")
		}

		srv := server.New(server.Options{
			Exporter:           exporter,
			Store:              store,
			Authorizer:         server.NewAuthorizer(c.Auth.JWTSecret, clock),
			DefaultLimit:       c.Export.DefaultLimit,
			RateLimitPerMinute: c.RateLimit.PerMinute,
			RateLimitBurst:     c.RateLimit.Burst,
			ReadTimeout:        c.Server.ReadTimeout,
			ShutdownTimeout:    c.Server.ShutdownTimeout,
			Location:           loc,
			Clock:              clock,
			Logger:             getLogger(),
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.Run(ctx, c.Server.Listen); err != nil {
			return handleError(ErrInternal, err, "")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (overrides server.listen)")
	rootCmd.AddCommand(serveCmd)
}
