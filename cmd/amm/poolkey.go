package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"liquidityCore/internal/poolkey"
)

func newPoolKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pool-key <token> <token>",
		Short: "Print the canonical key of an unordered token pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := poolkey.ParsePair(args[0], args[1])
			if err != nil {
				return fmt.Errorf("pool key: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), key)
		},
	}
}
