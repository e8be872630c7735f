package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/storevault/pkg/internal/types"
)

var (
	bucketCmd = &cobra.Command{
		Use:     "bucket",
		Short:   "manage buckets of the acting user",
		Aliases: []string{"buckets"},
	}

	bucketCreateCmd = &cobra.Command{
		Use:   "create <bucket>",
		Short: "create a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			uid, err := s.actingUser(ctx)
			if err != nil {
				return err
			}

			res, err := s.coord.CreateBucket(ctx, &types.CreateBucketRequest{UserID: uid, Bucket: args[0]})
			if err != nil {
				return err
			}

			return printCreate(cmd, "bucket", args[0], res)
		}),
	}

	bucketListCmd = &cobra.Command{
		Use:     "ls",
		Short:   "list buckets",
		Aliases: []string{"list"},
		Args:    cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			uid, err := s.actingUser(ctx)
			if err != nil {
				return err
			}

			buckets, err := s.coord.ListBuckets(ctx, uid)
			if err != nil {
				return err
			}

			return printBuckets(cmd, buckets)
		}),
	}

	bucketRemoveCmd = &cobra.Command{
		Use:   "rm <bucket>",
		Short: "delete a bucket and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			uid, err := s.actingUser(ctx)
			if err != nil {
				return err
			}

			res, err := s.coord.DeleteBucket(ctx, &types.DeleteBucketRequest{UserID: uid, Bucket: args[0]})
			if err != nil {
				return err
			}

			return printDelete(cmd, args[0], res)
		}),
	}
)

func printBuckets(cmd *cobra.Command, buckets []types.BucketInfo) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), buckets)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tCREATED")

	for _, b := range buckets {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Name, b.ID, b.CreatedAt.Format(time.RFC3339))
	}

	return w.Flush()
}

// printCreate 输出创建结果，已存在时提示而不报错.
func printCreate(cmd *cobra.Command, what, name string, res *types.CreateResult) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), res)
	}

	if !res.Created {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s already exists\n", what, name)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", what, name, res.ID)

	return nil
}

func printDelete(cmd *cobra.Command, target string, res *types.DeleteResult) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), res)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s: %d folders, %d files, %d bytes\n",
		target, res.Folders, res.Files, res.Bytes)

	return nil
}

// registerBucketCommands 注册存储桶相关命令.
func registerBucketCommands() {
	bucketCmd.AddCommand(bucketCreateCmd)
	bucketCmd.AddCommand(bucketListCmd)
	bucketCmd.AddCommand(bucketRemoveCmd)
	rootCmd.AddCommand(bucketCmd)
}
