package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show gateway health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := root.client()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), root.timeout)
			defer cancel()

			hs, err := client.Health(ctx)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), hs); err != nil {
				return err
			}
			if hs.Status == "error" {
				return fmt.Errorf("gateway is unhealthy")
			}
			return nil
		},
	}
}
