package main

import (
	"context"
	"fmt"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/spf13/cobra"

	"github.com/kishoreadhith-v/better-fs/internal/fsadapter"
)

func newMountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mount MOUNT_POINT",
		Short: "Mount the store as a FUSE file system at MOUNT_POINT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, cfg, closeFn, err := openManager()
			if err != nil {
				return err
			}
			defer closeFn()

			adapter, err := fsadapter.New(fm, fsadapter.Config{
				UID: cfg.UID,
				GID: cfg.GID,
			}, nil)
			if err != nil {
				return err
			}

			server := fuseutil.NewFileSystemServer(adapter)

			mfs, err := fuse.Mount(args[0], server, &fuse.MountConfig{
				FSName:      "betterfs",
				VolumeName:  "betterfs",
				ReadOnly:    false,
				ErrorLogger: nil,
			})
			if err != nil {
				return fmt.Errorf("mount: %w", err)
			}

			return mfs.Join(context.Background())
		},
	}
}
