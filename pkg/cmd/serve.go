package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/storevault/pkg/app"
	"github.com/yeisme/storevault/pkg/configs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run maintenance jobs and the ops HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := *configs.GetConfig()

		a, err := app.NewApp(ctx, &cfg)
		if err != nil {
			return err
		}

		return a.Run(ctx)
	},
}

// registerServeCommands 注册 serve 命令.
func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)
}
