package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "ls [bucket] [folder]",
	Short: "list buckets, or the direct children of a folder",
	Args:  cobra.MaximumNArgs(2),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		uid, err := s.actingUser(ctx)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			buckets, err := s.coord.ListBuckets(ctx, uid)
			if err != nil {
				return err
			}

			return printBuckets(cmd, buckets)
		}

		req := &types.ListRequest{UserID: uid, Bucket: args[0]}
		if len(args) == 2 {
			req.FolderPath = args[1]
		}

		res, err := s.coord.List(ctx, req)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tNAME\tSIZE\tTYPE\tUPDATED")

		for _, it := range res.Items {
			name := it.Name
			if it.Kind == model.KindFolder {
				name += "/"
			}

			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", it.Kind, name, it.SizeBytes, it.FileType, it.UpdatedAt.Format(time.RFC3339))
		}

		return w.Flush()
	}),
}

// registerListCommands 注册 ls 命令.
func registerListCommands() {
	rootCmd.AddCommand(listCmd)
}
