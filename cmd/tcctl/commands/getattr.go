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

func newGetAttrCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "getattr <path>",
		Short: "Fetch and print a file's attributes",
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

			mask := nfs.Mask{Mode: true, Size: true, Nlink: true, UID: true, GID: true, Atime: true, Mtime: true, Ctime: true}
			batch := []tc.Attrs{{File: tc.PathRef{Path: args[0]}, Mask: mask}}

			result, err := client.GetAttrs(ctx, batch, false)
			if err != nil {
				return fmt.Errorf("getattr: %w", err)
			}
			if !result.Okay {
				return fmt.Errorf("getattr failed: %s", result.Errno)
			}

			attrs := batch[0].Attrs
			return output.SimpleTable(cmd.OutOrStdout(), [][2]string{
				{"path", args[0]},
				{"mode", fmt.Sprintf("%#o", attrs.Mode)},
				{"size", fmt.Sprintf("%d", attrs.Size)},
				{"nlink", fmt.Sprintf("%d", attrs.Nlink)},
				{"uid", fmt.Sprintf("%d", attrs.UID)},
				{"gid", fmt.Sprintf("%d", attrs.GID)},
				{"atime", timeutil.FormatLocal(attrs.Atime)},
				{"mtime", timeutil.FormatLocal(attrs.Mtime)},
				{"ctime", timeutil.FormatLocal(attrs.Ctime)},
			})
		},
	}
	return cmd
}
