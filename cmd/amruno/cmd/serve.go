package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/nfrund/amruno/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	Long: `Connect to the configured database, apply the schema and serve the REST
API and the /ws/:client_id websocket endpoint until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := server.Open(ctx, cfg)
		if err != nil {
			return err
		}
		s.RegisterRoutes()
		return s.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
