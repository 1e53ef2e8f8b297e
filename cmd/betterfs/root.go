package main

import (
	"github.com/spf13/cobra"

	"github.com/kishoreadhith-v/better-fs/internal/cas"
	"github.com/kishoreadhith-v/better-fs/internal/config"
	"github.com/kishoreadhith-v/better-fs/internal/filemanager"
	"github.com/kishoreadhith-v/better-fs/internal/logx"
	"github.com/kishoreadhith-v/better-fs/internal/recipe"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "betterfs",
		Short: "A content-addressed, deduplicating file store with an optional FUSE mount",
		Long: `betterfs chunks file content with a rolling-hash chunker, stores each
chunk once under its SHA-256 identity, and keeps a per-path recipe that
reconstructs the original bytes from that chunk list. It can be driven
directly from the command line, or mounted as a FUSE file system.`,
		SilenceUsage: true,
	}

	if err := config.BindFlags(root.PersistentFlags()); err != nil {
		panic(err)
	}

	root.AddCommand(
		newWriteCmd(),
		newReadCmd(),
		newListCmd(),
		newMkdirCmd(),
		newRmCmd(),
		newMvCmd(),
		newInspectCmd(),
		newGCCmd(),
		newMountCmd(),
	)

	return root
}

// openManager loads configuration, constructs the logger, and opens the CAS
// and recipe store, returning a ready-to-use filemanager.Manager along with
// a close function the caller must defer.
func openManager() (*filemanager.Manager, config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, nil, err
	}

	log := logx.New(logx.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	store, err := cas.Open(cfg.StoreDir, cfg.CompressionLevel, log)
	if err != nil {
		return nil, cfg, nil, err
	}

	recipes, err := recipe.Open(cfg.StoreDir, log)
	if err != nil {
		store.Close()
		return nil, cfg, nil, err
	}

	fm := filemanager.New(store, recipes, log)
	closeFn := func() {
		recipes.Close()
		store.Close()
	}

	return fm, cfg, closeFn, nil
}
