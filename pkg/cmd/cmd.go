// Package cmd contains the command line applications for the project.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/log"
)

var (
	configPath string
	userFlag   string
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:           "storevault",
		Short:         "Multi-tenant encrypted object storage",
		Version:       configs.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.InitConfig(configPath); err != nil {
				return err
			}

			log.Init()

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./", "config file or directory")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "acting user, name or numeric id")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	registerServeCommands()
	registerUserCommands()
	registerBucketCommands()
	registerFolderCommands()
	registerFileCommands()
	registerListCommands()
	registerPlacementCommands()
	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
	registerBlobCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// printJSON 以缩进 JSON 输出.
func printJSON(w io.Writer, v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(b))

	return err
}
