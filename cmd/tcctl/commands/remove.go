package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/tc4client/internal/cli/prompt"
	"github.com/marmos91/tc4client/pkg/tc"
)

func newRemoveCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "Remove one or more files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := fmt.Sprintf("remove %d path(s)", len(args))
			ok, err := prompt.ConfirmWithForce(label, force)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}

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

			files := make([]tc.FileRef, len(args))
			for i, p := range args {
				files[i] = tc.PathRef{Path: p}
			}

			result, err := client.Removev(ctx, files, false)
			if err != nil {
				return fmt.Errorf("rm: %w", err)
			}
			if !result.Okay {
				return fmt.Errorf("rm failed at %s: %s", args[result.Index], result.Errno)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d path(s)\n", len(args))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")
	return cmd
}
