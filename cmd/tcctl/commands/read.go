package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/tc4client/pkg/tc"
)

func newReadCmd() *cobra.Command {
	var offset int64
	var length int

	cmd := &cobra.Command{
		Use:   "read <path>",
		Short: "Read bytes from a file and print them to stdout",
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

			iov := []tc.IOVec{{
				File:   tc.PathRef{Path: args[0]},
				Offset: uint64(offset),
				Length: uint32(length),
			}}

			result, err := client.Read(ctx, iov, false)
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			if !result.Okay {
				return fmt.Errorf("read failed: %s", result.Errno)
			}

			_, err = os.Stdout.Write(iov[0].Data)
			return err
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "byte offset to start reading from")
	cmd.Flags().IntVar(&length, "length", 4096, "number of bytes to read")
	return cmd
}
