package fsadapter

import (
	"golang.org/x/sys/unix"

	"github.com/jacobsa/fuse/fuseops"
)

// CreateFile allocates an empty write buffer and registers the new inode
// in memory; the recipe is not created until the buffer is flushed at
// Sync/Flush/Release time, matching the deferred-commit discipline the
// rest of this file follows for every other write.
func (a *Adapter) CreateFile(op *fuseops.CreateFileOp) error {
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

	childID := a.register(childPath)
	a.writeBuffers[childID] = &writeBuffer{path: childPath, dirty: true}

	attrs, err := a.attributesFor(childID, childPath)
	if err != nil {
		return toErrno(err)
	}
	op.Entry.Child = childID
	op.Entry.Attributes = attrs

	handle := a.nextHandle
	a.nextHandle++
	a.fileHandles[handle] = childID
	op.Handle = handle

	return nil
}

// OpenFile sanity-checks the inode and mints a handle; the write buffer, if
// any, is populated lazily on first WriteFile.
func (a *Adapter) OpenFile(op *fuseops.OpenFileOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	path, ok := a.pathOf(op.Inode)
	if !ok {
		return unix.ENOENT
	}
	if _, exists, err := a.fm.GetFileMetadata(path); err != nil {
		return toErrno(err)
	} else if !exists {
		if _, buffered := a.writeBuffers[op.Inode]; !buffered {
			return unix.ENOENT
		}
	}

	handle := a.nextHandle
	a.nextHandle++
	a.fileHandles[handle] = op.Inode
	op.Handle = handle
	return nil
}

// ReadFile serves bytes from the write buffer, if the inode has one open,
// otherwise from the durable recipe.
func (a *Adapter) ReadFile(op *fuseops.ReadFileOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	path, ok := a.pathOf(op.Inode)
	if !ok {
		return unix.ENOENT
	}

	var data []byte
	if buf, ok := a.writeBuffers[op.Inode]; ok {
		data = buf.data
	} else {
		d, err := a.fm.ReadFile(path)
		if err != nil {
			return toErrno(err)
		}
		data = d
	}

	if op.Offset < 0 || int64(len(data)) <= op.Offset {
		op.Data = nil
		return nil
	}

	end := op.Offset + int64(op.Size)
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	op.Data = data[op.Offset:end]
	return nil
}

// WriteFile buffers the write in memory; it is not made durable until
// Sync/Flush/Release, matching the deferred-commit design note.
func (a *Adapter) WriteFile(op *fuseops.WriteFileOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	path, ok := a.pathOf(op.Inode)
	if !ok {
		return unix.ENOENT
	}

	buf, ok := a.writeBuffers[op.Inode]
	if !ok {
		data, err := a.fm.ReadFile(path)
		if err != nil {
			return toErrno(err)
		}
		buf = &writeBuffer{path: path, data: data}
		a.writeBuffers[op.Inode] = buf
	}

	end := op.Offset + int64(len(op.Data))
	if end > int64(len(buf.data)) {
		grown := make([]byte, end)
		copy(grown, buf.data)
		buf.data = grown
	}
	copy(buf.data[op.Offset:end], op.Data)
	buf.dirty = true

	return nil
}

// flushInode persists a dirty write buffer's contents via the file manager,
// which re-chunks and re-stores under the buffer's current path.
// EXCLUSIVE_LOCKS_REQUIRED(Mu)
func (a *Adapter) flushInode(id fuseops.InodeID) error {
	buf, ok := a.writeBuffers[id]
	if !ok || !buf.dirty {
		return nil
	}
	if err := a.fm.WriteFile(buf.path, buf.data); err != nil {
		return err
	}
	buf.dirty = false
	return nil
}

// SyncFile forces the current buffer contents to the recipe store without
// releasing the handle.
func (a *Adapter) SyncFile(op *fuseops.SyncFileOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()
	return toErrno(a.flushInode(op.Inode))
}

// FlushFile is sent on close(2); semantically identical to Sync here since
// the store has no separate "pending" vs "committed" generation concept.
func (a *Adapter) FlushFile(op *fuseops.FlushFileOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()
	return toErrno(a.flushInode(op.Inode))
}

// ReleaseFileHandle flushes any remaining dirty bytes and discards the
// buffer: the single-writer model means there is no other handle left that
// could still need it once this one is released.
func (a *Adapter) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	id, ok := a.fileHandles[op.Handle]
	delete(a.fileHandles, op.Handle)
	if !ok {
		return nil
	}

	if err := a.flushInode(id); err != nil {
		return toErrno(err)
	}
	delete(a.writeBuffers, id)
	return nil
}
