package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/folio/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local store over the list API",
		Long: "serve exposes the local store on /api/collections/{collection}/records\n" +
			"so another folio can browse it with --backend http://host:port.",
		GroupID: "system",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			b, err := openLocal(c.cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			srv := server.New(b.Store(), c.cfg.Server)
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", c.cfg.Database.Path, c.cfg.Server.Addr)
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config)")
	return cmd
}
