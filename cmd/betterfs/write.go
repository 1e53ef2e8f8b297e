package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write HOST_PATH",
		Short: "Read a host file and store it under its basename",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, _, closeFn, err := openManager()
			if err != nil {
				return err
			}
			defer closeFn()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			return fm.WriteFile(filepath.Base(args[0]), data)
		},
	}
}
