package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kishoreadhith-v/better-fs/internal/recipe"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print every recipe store entry as [FILE|DIR] <path> (size, nchunks)",
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

			out := cmd.OutOrStdout()
			for _, p := range paths {
				md, ok, err := fm.GetFileMetadata(p)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				kind := "FILE"
				if md.Kind == recipe.Directory {
					kind = "DIR"
				}
				fmt.Fprintf(out, "[%s] %s (%d, %d)\n", kind, p, md.Size, md.NumChunks)
			}
			return nil
		},
	}
}
