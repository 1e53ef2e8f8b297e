package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Reclaim chunks no longer referenced by any recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, _, closeFn, err := openManager()
			if err != nil {
				return err
			}
			defer closeFn()

			deleted, err := fm.RunGC()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "reclaimed %d chunk(s)\n", deleted)
			return nil
		},
	}
}
