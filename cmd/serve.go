package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/csvscope/internal/logging"
	"github.com/KaramelBytes/csvscope/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvAddr      string
	srvMaxUpload int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *currentConfig()
		if cmd.Flags().Changed("addr") {
			c.Addr = srvAddr
		}
		if cmd.Flags().Changed("max-upload-mb") {
			c.MaxUploadMB = srvMaxUpload
		}
		if err := c.Validate(); err != nil {
			return err
		}

		logger, closer, err := logging.New(c.LogLevel, c.LogFormat, c.LogOutput)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer closer.Close()
		slog.SetDefault(logger)

		srv, err := server.New(&c, logger)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ csvscope listening on %s\n", c.Addr)
		return srv.Run(ctx)
	},
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().IntVar(&srvMaxUpload, "max-upload-mb", 0, "upload size limit in MB (overrides config)")
}
