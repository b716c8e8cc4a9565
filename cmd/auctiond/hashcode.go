package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"crewauction/internal/admin"
)

func newHashCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-admin-code <code>",
		Short: "Print a bcrypt hash for admin.access_code_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := admin.HashCode(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}
