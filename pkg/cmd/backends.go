package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/jobs"
	"github.com/yeisme/storevault/pkg/internal/storage/blob"
	"github.com/yeisme/storevault/pkg/internal/storage/db"
	"github.com/yeisme/storevault/pkg/internal/storage/kv"
	"github.com/yeisme/storevault/pkg/internal/storage/mq"
)

// listCommand 构造列出某类已注册后端的 ls 子命令.
func listCommand[T ~string](what string, registered func() []T) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Short:   "list all registered " + what + " types",
		Aliases: []string{"list", "l"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types := registered()
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), types)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s types:\n", what)

			for _, t := range types {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}

			return nil
		},
	}
}

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "Key-Value store related commands",
		Aliases: []string{"keyvalue"},
	}

	mqCmd = &cobra.Command{
		Use:     "mq",
		Short:   "Message queue related commands",
		Aliases: []string{"messagequeue"},
	}

	blobCmd = &cobra.Command{
		Use:   "blob",
		Short: "Physical blob storage related commands",
	}

	sweepGrace time.Duration

	blobSweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "remove blobs that no file references, once",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			jc := s.cfg.Jobs
			if cmd.Flags().Changed("grace") {
				jc.OrphanGrace = sweepGrace
			}

			if err := configs.ValidateOrphanGrace(jc.OrphanGrace, s.cfg.Storage.OpTimeout); err != nil {
				return err
			}

			report, err := jobs.NewOrphanSweeper(s.coord.Blobs(), s.coord.Catalog(), jobs.SweepConfig{
				Grace:     jc.OrphanGrace,
				Rate:      jc.SweepRate,
				Burst:     jc.SweepBurst,
				BatchSize: jc.SweepBatchSize,
			}).Run(ctx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), report)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, removed %d (pending %d), kept young %d, failed %d\n",
				report.Scanned, report.Removed, report.Pending, report.Young, report.Failed)

			return nil
		}),
	}
)

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	dbCmd.AddCommand(listCommand[configs.DBType]("database", db.GetRegisteredDBTypes))
	rootCmd.AddCommand(dbCmd)
}

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	kvCmd.AddCommand(listCommand[configs.KVType]("kv", kv.GetRegisteredKVTypes))
	rootCmd.AddCommand(kvCmd)
}

// registerMQCommands 注册 MQ 相关命令.
func registerMQCommands() {
	mqCmd.AddCommand(listCommand[configs.MQType]("mq", mq.GetRegisteredMQTypes))
	rootCmd.AddCommand(mqCmd)
}

// registerBlobCommands 注册物理存储相关命令.
func registerBlobCommands() {
	blobSweepCmd.Flags().DurationVar(&sweepGrace, "grace", configs.DefaultOrphanGrace, "only remove blobs older than this")

	blobCmd.AddCommand(listCommand[configs.BlobBackend]("blob backend", blob.GetRegisteredBackends))
	blobCmd.AddCommand(blobSweepCmd)
	rootCmd.AddCommand(blobCmd)
}
