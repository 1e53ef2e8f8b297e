package main

import (
	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm PATH",
		Short: "Delete the recipe at PATH (chunks it referenced are reclaimed by gc)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, _, closeFn, err := openManager()
			if err != nil {
				return err
			}
			defer closeFn()

			return fm.DeleteFile(args[0])
		},
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv OLD_PATH NEW_PATH",
		Short: "Rename a recipe",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, _, closeFn, err := openManager()
			if err != nil {
				return err
			}
			defer closeFn()

			return fm.RenameFile(args[0], args[1])
		},
	}
}
