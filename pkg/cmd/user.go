package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/storevault/pkg/internal/model"
	"github.com/yeisme/storevault/pkg/internal/users"
)

var (
	userID uint64

	userCmd = &cobra.Command{
		Use:   "user",
		Short: "manage users and their encryption keys",
	}

	userCreateCmd = &cobra.Command{
		Use:   "create <name>",
		Short: "create a user; a secret key is generated once and never changes",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			var opts []users.CreateOption
			if userID != 0 {
				opts = append(opts, users.WithID(userID))
			}

			u, err := s.users.Create(ctx, args[0], opts...)
			if err != nil {
				return err
			}

			return printUsers(cmd, *u)
		}),
	}

	userShowCmd = &cobra.Command{
		Use:     "show [name|id]",
		Short:   "show one user, or all users without arguments",
		Aliases: []string{"ls"},
		Args:    cobra.MaximumNArgs(1),
		RunE: withSession(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
			if len(args) == 0 {
				all, err := s.users.List(ctx)
				if err != nil {
					return err
				}

				return printUsers(cmd, all...)
			}

			u, err := s.lookupUser(ctx, args[0])
			if err != nil {
				return err
			}

			return printUsers(cmd, *u)
		}),
	}
)

func printUsers(cmd *cobra.Command, list ...model.User) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), list)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED")

	for _, u := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Name, u.CreatedAt.Format(time.RFC3339))
	}

	return w.Flush()
}

// registerUserCommands 注册用户相关命令.
func registerUserCommands() {
	userCreateCmd.Flags().Uint64Var(&userID, "id", 0, "explicit user id")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userShowCmd)
	rootCmd.AddCommand(userCmd)
}
