package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/tc4client/internal/cli/output"
	"github.com/marmos91/tc4client/internal/cli/timeutil"
	"github.com/marmos91/tc4client/internal/protocol/nfs"
	"github.com/marmos91/tc4client/pkg/tc"
)

func newLsCmd() *cobra.Command {
	var max int

	cmd := &cobra.Command{
		Use:   "ls <dir>",
		Short: "List a directory's entries",
		Args:  cobra.ExactArgs(1),
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

			mask := nfs.Mask{Mode: true, Size: true, Mtime: true}
			entries, err := client.ListDir(ctx, args[0], mask, max)
			if err != nil {
				return fmt.Errorf("ls: %w", err)
			}

			table := output.NewTableData("NAME", "MODE", "SIZE", "MTIME")
			for _, e := range entries {
				table.AddRow(e.Name, fmt.Sprintf("%#o", e.Attrs.Mode), fmt.Sprintf("%d", e.Attrs.Size), timeutil.FormatLocal(e.Attrs.Mtime))
			}
			return output.PrintTable(cmd.OutOrStdout(), table)
		},
	}

	cmd.Flags().IntVar(&max, "max", 0, "maximum number of entries to list (0 = unlimited)")
	return cmd
}
