package fsadapter

import (
	"sort"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/kishoreadhith-v/better-fs/internal/recipe"
)

// MkDir creates an empty directory recipe and mints its inode.
func (a *Adapter) MkDir(op *fuseops.MkDirOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	parentPath, ok := a.pathOf(op.Parent)
	if !ok {
		return unix.ENOENT
	}
	childPath := joinPath(parentPath, op.Name)

	if _, exists, err := a.fm.GetFileMetadata(childPath); err != nil {
		return toErrno(err)
	} else if exists {
		return unix.EEXIST
	}

	if err := a.fm.CreateDirectory(childPath); err != nil {
		return toErrno(err)
	}

	childID := a.register(childPath)
	attrs, err := a.attributesFor(childID, childPath)
	if err != nil {
		return toErrno(err)
	}
	op.Entry.Child = childID
	op.Entry.Attributes = attrs
	return nil
}

// RmDir removes an empty directory. The kernel is trusted to have already
// resolved the child via LookUpInode, so we re-derive its path rather than
// require a prior lookup.
func (a *Adapter) RmDir(op *fuseops.RmDirOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	parentPath, ok := a.pathOf(op.Parent)
	if !ok {
		return unix.ENOENT
	}
	childPath := joinPath(parentPath, op.Name)

	md, exists, err := a.fm.GetFileMetadata(childPath)
	if err != nil {
		return toErrno(err)
	}
	if !exists {
		return unix.ENOENT
	}
	if md.Kind != recipe.Directory {
		return unix.ENOTDIR
	}

	entries, err := a.listChildren(childPath)
	if err != nil {
		return toErrno(err)
	}
	if len(entries) > 2 {
		return unix.ENOTEMPTY
	}

	if err := a.fm.DeleteFile(childPath); err != nil {
		return toErrno(err)
	}
	return nil
}

// Unlink removes a file. Chunks it referenced are reclaimed later by GC,
// never inline with the unlink itself.
func (a *Adapter) Unlink(op *fuseops.UnlinkOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	parentPath, ok := a.pathOf(op.Parent)
	if !ok {
		return unix.ENOENT
	}
	childPath := joinPath(parentPath, op.Name)

	if err := a.fm.DeleteFile(childPath); err != nil {
		return toErrno(err)
	}

	childID := inodeForPath(childPath)
	delete(a.writeBuffers, childID)
	return nil
}

// Rename moves a recipe from one path to another. Because inode numbers are
// derived from paths, a rename changes the inode; any live write buffer is
// migrated to the new inode so in-flight writes aren't lost.
func (a *Adapter) Rename(op *fuseops.RenameOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	oldParentPath, ok := a.pathOf(op.OldParent)
	if !ok {
		return unix.ENOENT
	}
	newParentPath, ok := a.pathOf(op.NewParent)
	if !ok {
		return unix.ENOENT
	}

	oldPath := joinPath(oldParentPath, op.OldName)
	newPath := joinPath(newParentPath, op.NewName)
	oldID := inodeForPath(oldPath)
	newID := inodeForPath(newPath)

	// A file created but not yet flushed has a write buffer and no recipe;
	// its buffer alone carries it to newPath.
	_, buffered := a.writeBuffers[oldID]
	_, hasRecipe, err := a.fm.GetFileMetadata(oldPath)
	if err != nil {
		return toErrno(err)
	}
	if hasRecipe || !buffered {
		if err := a.fm.RenameFile(oldPath, newPath); err != nil {
			return toErrno(err)
		}
	}

	delete(a.inodes, oldID)
	a.register(newPath)

	if buf, ok := a.writeBuffers[oldID]; ok {
		buf.path = newPath
		a.writeBuffers[newID] = buf
		delete(a.writeBuffers, oldID)
		for h, id := range a.fileHandles {
			if id == oldID {
				a.fileHandles[h] = newID
			}
		}
	}

	return nil
}

// parentOf returns the path of dirPath's containing directory, or "" if
// dirPath is already the root.
func parentOf(dirPath string) string {
	idx := strings.LastIndexByte(dirPath, '/')
	if idx < 0 {
		return ""
	}
	return dirPath[:idx]
}

// listChildren returns the full readdir listing for dirPath: synthetic "."
// and ".." entries first, then the direct children, reconciling explicit
// Directory recipes with directories that only exist implicitly as a
// common prefix of deeper paths (per the on-disk layout: there is no
// requirement that every ancestor of a file path has its own recipe).
func (a *Adapter) listChildren(dirPath string) ([]fuseops.Dirent, error) {
	paths, err := a.fm.ListFiles()
	if err != nil {
		return nil, err
	}

	prefix := dirPath
	if prefix != "" {
		prefix += "/"
	}

	type childInfo struct {
		name  string
		isDir bool
	}
	seen := make(map[string]childInfo)

	for _, p := range paths {
		if p == dirPath || !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		if rest == "" {
			continue
		}
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			name := rest[:idx]
			seen[name] = childInfo{name: name, isDir: true}
			continue
		}
		if _, ok := seen[rest]; ok {
			continue
		}
		md, exists, err := a.fm.GetFileMetadata(p)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		seen[rest] = childInfo{name: rest, isDir: md.Kind == recipe.Directory}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	selfID := a.register(dirPath)
	parentPath := parentOf(dirPath)
	var parentID fuseops.InodeID
	if dirPath == "" {
		parentID = fuseops.RootInodeID
	} else {
		parentID = a.register(parentPath)
	}

	entries := make([]fuseops.Dirent, 0, len(names)+2)
	entries = append(entries,
		fuseops.Dirent{Offset: 1, Inode: selfID, Name: ".", Type: fuseops.DT_Directory},
		fuseops.Dirent{Offset: 2, Inode: parentID, Name: "..", Type: fuseops.DT_Directory},
	)

	for i, name := range names {
		c := seen[name]
		childPath := joinPath(dirPath, name)
		childID := a.register(childPath)

		typ := fuseops.DT_File
		if c.isDir {
			typ = fuseops.DT_Directory
		}

		entries = append(entries, fuseops.Dirent{
			Offset: fuseops.DirOffset(i + 3),
			Inode:  childID,
			Name:   name,
			Type:   typ,
		})
	}

	return entries, nil
}

// OpenDir snapshots the directory's current listing for the lifetime of the
// handle, so a ReadDir sequence never observes a listing that mutates
// mid-stream.
func (a *Adapter) OpenDir(op *fuseops.OpenDirOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	path, ok := a.pathOf(op.Inode)
	if !ok {
		return unix.ENOENT
	}

	entries, err := a.listChildren(path)
	if err != nil {
		return toErrno(err)
	}

	id := a.nextHandle
	a.nextHandle++
	a.dirHandles[id] = &dirHandle{path: path, entries: entries}
	op.Handle = id
	return nil
}

// ReadDir serves entries from the snapshot taken at OpenDir time, encoding
// them into op.Data in the kernel's fuse_dirent wire format via
// fuseutil.WriteDirent.
func (a *Adapter) ReadDir(op *fuseops.ReadDirOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	dh, ok := a.dirHandles[op.Handle]
	if !ok {
		return unix.EINVAL
	}

	index := int(op.Offset)
	if index > len(dh.entries) {
		return unix.EINVAL
	}

	buf := make([]byte, op.Size)
	var n int
	for _, e := range dh.entries[index:] {
		written := fuseutil.WriteDirent(buf[n:], e)
		if written == 0 {
			break
		}
		n += written
	}
	op.Data = buf[:n]
	return nil
}

// ReleaseDirHandle frees the snapshot taken at OpenDir time.
func (a *Adapter) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	delete(a.dirHandles, op.Handle)
	return nil
}
