package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yeisme/storevault/pkg/internal/pathtree"
	"github.com/yeisme/storevault/pkg/internal/types"
)

var (
	recursive bool

	folderCmd = &cobra.Command{
		Use:   "folder",
		Short: "manage folders inside a bucket",
	}

	folderCreateCmd = &cobra.Command{
		Use:   "create <bucket> <path>",
		Short: "create a folder; the parent folder must exist",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			uid, err := s.actingUser(ctx)
			if err != nil {
				return err
			}

			parent, name := pathtree.Dir(args[1])

			res, err := s.coord.CreateFolder(ctx, &types.CreateFolderRequest{
				UserID: uid, Bucket: args[0], ParentPath: parent, Name: name,
			})
			if err != nil {
				return err
			}

			return printCreate(cmd, "folder", args[1], res)
		}),
	}

	folderRemoveCmd = &cobra.Command{
		Use:   "rm <bucket> <path>",
		Short: "delete a folder; non-empty folders need -r",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			uid, err := s.actingUser(ctx)
			if err != nil {
				return err
			}

			res, err := s.coord.DeleteFolder(ctx, &types.DeleteFolderRequest{
				UserID: uid, Bucket: args[0], Path: args[1], Recursive: recursive,
			})
			if err != nil {
				return err
			}

			return printDelete(cmd, args[1], res)
		}),
	}
)

// registerFolderCommands 注册目录相关命令.
func registerFolderCommands() {
	folderRemoveCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "delete all descendants")

	folderCmd.AddCommand(folderCreateCmd)
	folderCmd.AddCommand(folderRemoveCmd)
	rootCmd.AddCommand(folderCmd)
}
