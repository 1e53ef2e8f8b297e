package fsadapter

import (
	"golang.org/x/sys/unix"

	"github.com/kishoreadhith-v/better-fs/internal/storeerr"
)

// errNoSuchPath is the sentinel translated to ENOENT when a path has no
// recipe and no live write buffer.
func errNoSuchPath(path string) error {
	return storeerr.NotFoundf("path %q", path)
}

// toErrno maps a Manager/storeerr error onto the errno the kernel expects.
// Any error not recognized as a tagged storeerr.Error is reported as EIO,
// per the translation rule in the design notes: NotFound -> ENOENT,
// StorageCorrupt -> EIO, everything else -> EIO.
func toErrno(err error) error {
	if err == nil {
		return nil
	}
	if storeerr.Is(err, storeerr.NotFound) {
		return unix.ENOENT
	}
	return unix.EIO
}
