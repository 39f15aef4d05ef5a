package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/tc4client/pkg/tc"
)

func newMkdirCmd() *cobra.Command {
	var mode uint32

	cmd := &cobra.Command{
		Use:   "mkdir <path>...",
		Short: "Create one or more directories",
		Args:  cobra.MinimumNArgs(1),
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

			dirs := make([]tc.FileRef, len(args))
			modes := make([]uint32, len(args))
			for i, p := range args {
				dirs[i] = tc.PathRef{Path: p}
				modes[i] = mode
			}

			result, err := client.Mkdirv(ctx, dirs, modes, false)
			if err != nil {
				return fmt.Errorf("mkdir: %w", err)
			}
			if !result.Okay {
				return fmt.Errorf("mkdir failed at %s: %s", args[result.Index], result.Errno)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %d director(y/ies)\n", len(args))
			return nil
		},
	}

	cmd.Flags().Uint32Var(&mode, "mode", 0o755, "permission mode for created directories")
	return cmd
}
