package root

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nhle/task-focus/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST backend over the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Server.AuthToken == "" {
				return errors.New("server.auth_token is not set (config or TASKFOCUS_SERVER_AUTH_TOKEN)")
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if !verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			logger := log.New(os.Stderr, "taskfocus: ", log.LstdFlags)
			srv := server.NewServer(s, cfg.Engine, cfg.Server.AuthToken, server.WithLogger(logger))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}
