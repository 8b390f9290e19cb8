package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/avdcache/mem/cache/hierarchy"
)

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the geometry of the configured caches.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			h, err := hierarchy.MakeBuilder().
				WithL1(c.L1Builder()).
				WithL2(c.L2Builder()).
				Build("cachesim")
			if err != nil {
				return err
			}
			defer h.Destroy()

			_, err = fmt.Fprint(cmd.OutOrStdout(), h.Describe())

			return err
		},
	}

	addGeometryFlags(cmd)

	return cmd
}
