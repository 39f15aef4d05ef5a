package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/tc4client/pkg/tc"
)

func newRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <src> <dst>",
		Short: "Rename a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			client, err := tc.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer client.Close()

			pairs := []tc.FilePair{{
				Src: tc.PathRef{Path: args[0]},
				Dst: tc.PathRef{Path: args[1]},
			}}

			result, err := client.Renamev(ctx, pairs, false)
			if err != nil {
				return fmt.Errorf("rename: %w", err)
			}
			if !result.Okay {
				return fmt.Errorf("rename failed: %s", result.Errno)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s -> %s\n", args[0], args[1])
			return nil
		},
	}
	return cmd
}
