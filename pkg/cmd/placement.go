package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yeisme/storevault/pkg/configs"
	"github.com/yeisme/storevault/pkg/internal/placement"
)

var placementCmd = &cobra.Command{
	Use:   "placement <user-id>",
	Short: "print where a user's files are placed under the storage root",
	Long: `Print the partition, subpartition and user root directory for a user id.
No directory is created and no backend is contacted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", args[0], err)
		}

		cfg := configs.GetConfig().Storage

		root := cfg.Root
		if cfg.Backend == configs.BlobLocal {
			if abs, err := filepath.Abs(root); err == nil {
				root = abs
			}
		}

		alloc := placement.New(root, cfg.ServerID, nil)
		p, sp := placement.UserShard(id)

		out := map[string]any{
			"user_id":      id,
			"partition":    p,
			"subpartition": sp,
			"user_root":    alloc.UserRoot(id),
			"example_dir":  alloc.FileStoragePath(id),
			"example_name": alloc.NewStoredName(),
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), out)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "partition:    %d\nsubpartition: %d\nuser root:    %s\nexample dir:  %s\n",
			p, sp, out["user_root"], out["example_dir"])

		return nil
	},
}

// registerPlacementCommands 注册 placement 命令.
func registerPlacementCommands() {
	rootCmd.AddCommand(placementCmd)
}
