package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/tc4client/pkg/tc"
)

func newWriteCmd() *cobra.Command {
	var offset int64

	cmd := &cobra.Command{
		Use:   "write <path>",
		Short: "Write stdin's bytes to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			ctx := context.Background()
			client, err := tc.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer client.Close()

			iov := []tc.IOVec{{
				File:   tc.PathRef{Path: args[0]},
				Offset: uint64(offset),
				Data:   data,
			}}

			result, err := client.Write(ctx, iov, false)
			if err != nil {
				return fmt.Errorf("write: %w", err)
			}
			if !result.Okay {
				return fmt.Errorf("write failed: %s", result.Errno)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), args[0])
			return nil
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "byte offset to start writing at")
	return cmd
}
