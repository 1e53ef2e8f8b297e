package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print one path per line for every entry in the recipe store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, _, closeFn, err := openManager()
			if err != nil {
				return err
			}
			defer closeFn()

			paths, err := fm.ListFiles()
			if err != nil {
				return err
			}
			sort.Strings(paths)

			out := cmd.OutOrStdout()
			for _, p := range paths {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
}
