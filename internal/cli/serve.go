package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/meshio/internal/server"
)

type serveFlags struct {
	addr  string
	redis string
}

func (c *CLI) serveCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Long: `Serve starts an HTTP server with the routes

  GET  /healthz
  GET  /formats
  POST /convert?from=FORMAT&to=FORMAT[&name=FILE][&opt.KEY=VALUE...]

Converted meshes are cached in the local cache directory, or in Redis when
--redis (or [serve] redis in the config) is set.`,
		Example: `  meshio serve --addr :8080
  curl --data-binary @part.obj 'localhost:8080/convert?from=obj&to=stl-binary' > part.stl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.Config.Serve
			if cmd.Flags().Changed("addr") {
				cfg.Addr = flags.addr
			}
			if cmd.Flags().Changed("redis") {
				cfg.Redis = flags.redis
			}

			store, err := c.newCache(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer store.Close()

			s := server.New(c.dispatcher(), store, c.Logger, server.Config{
				MaxUploadBytes: cfg.MaxUploadBytes,
				CacheTTL:       cfg.CacheTTL,
			})
			return s.ListenAndServe(ctx, cfg.Addr)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&flags.redis, "redis", "", "redis URL for the shared cache, e.g. redis://localhost:6379/0")
	return cmd
}
