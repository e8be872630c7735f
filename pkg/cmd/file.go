package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/types"
)

var (
	putFolder      string
	putName        string
	putContentType string
	getOutput      string
	mvName         string
	itemKind       string

	fileCmd = &cobra.Command{
		Use:     "file",
		Short:   "store, load, move and delete files",
		Aliases: []string{"files"},
	}

	filePutCmd = &cobra.Command{
		Use:   "put <bucket> <local-file>",
		Short: "encrypt and store a local file; an existing file with the same name is kept",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			uid, err := s.actingUser(ctx)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			name := putName
			if name == "" {
				name = filepath.Base(args[1])
			}

			contentType := putContentType
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(name))
			}

			res, err := s.coord.StoreFile(ctx, &types.StoreFileRequest{
				UserID: uid, Bucket: args[0], FolderPath: putFolder, FileName: name,
				ContentType: contentType, Data: data,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}

			if !res.Stored {
				fmt.Fprintf(cmd.OutOrStdout(), "file %s already exists, nothing stored\n", name)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%d bytes)\n", res.Path, res.SizeBytes)

			return nil
		}),
	}

	fileGetCmd = &cobra.Command{
		Use:   "get <bucket> <path>",
		Short: "decrypt a file to stdout or -o <file>",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			uid, err := s.actingUser(ctx)
			if err != nil {
				return err
			}

			res, err := s.coord.LoadFile(ctx, &types.LoadFileRequest{UserID: uid, Bucket: args[0], Path: args[1]})
			if err != nil {
				return err
			}

			if getOutput == "" || getOutput == "-" {
				_, err = cmd.OutOrStdout().Write(res.Data)
				return err
			}

			return os.WriteFile(getOutput, res.Data, 0o600)
		}),
	}

	fileRemoveCmd = &cobra.Command{
		Use:   "rm <bucket> <path>",
		Short: "delete a file",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			uid, err := s.actingUser(ctx)
			if err != nil {
				return err
			}

			res, err := s.coord.DeleteFile(ctx, &types.DeleteFileRequest{UserID: uid, Bucket: args[0], Path: args[1]})
			if err != nil {
				return err
			}

			return printDelete(cmd, args[1], res)
		}),
	}

	fileMoveCmd = &cobra.Command{
		Use:   "mv <bucket> <path> <dst-folder>",
		Short: "move or rename a file or folder; use \"/\" for the bucket root",
		Args:  cobra.ExactArgs(3),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			uid, err := s.actingUser(ctx)
			if err != nil {
				return err
			}

			res, err := s.coord.Move(ctx, &types.MoveItemRequest{
				Item:      types.ItemRequest{UserID: uid, Bucket: args[0], Path: args[1], Kind: model.ItemKind(itemKind)},
				DstFolder: args[2],
				NewName:   mvName,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}

			if !res.Moved {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists at the destination\n", res.Path)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "moved %s -> %s\n", res.From, res.Path)

			return nil
		}),
	}

	statCmd = &cobra.Command{
		Use:   "stat <bucket> <path>",
		Short: "show metadata of a file or folder",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			uid, err := s.actingUser(ctx)
			if err != nil {
				return err
			}

			info, err := s.coord.Stat(ctx, &types.ItemRequest{
				UserID: uid, Bucket: args[0], Path: args[1], Kind: model.ItemKind(itemKind),
			})
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), info)
		}),
	}
)

// registerFileCommands 注册文件相关命令.
func registerFileCommands() {
	filePutCmd.Flags().StringVarP(&putFolder, "folder", "f", "", "destination folder, empty for the bucket root")
	filePutCmd.Flags().StringVarP(&putName, "name", "n", "", "stored file name, defaults to the local base name")
	filePutCmd.Flags().StringVarP(&putContentType, "type", "t", "", "content type, guessed from the extension by default")
	fileGetCmd.Flags().StringVarP(&getOutput, "output", "o", "", "write to file instead of stdout")
	fileMoveCmd.Flags().StringVarP(&mvName, "name", "n", "", "new name, keeps the current name by default")
	fileMoveCmd.Flags().StringVarP(&itemKind, "kind", "k", "", "file or folder, required when both exist")
	statCmd.Flags().StringVarP(&itemKind, "kind", "k", "", "file or folder, required when both exist")

	fileCmd.AddCommand(filePutCmd)
	fileCmd.AddCommand(fileGetCmd)
	fileCmd.AddCommand(fileRemoveCmd)
	fileCmd.AddCommand(fileMoveCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(statCmd)
}
