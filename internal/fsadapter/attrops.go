package fsadapter

import (
	"golang.org/x/sys/unix"

	"github.com/jacobsa/fuse/fuseops"
)

// LookUpInode resolves a child name within a parent directory, minting (or
// re-registering) the child's deterministic inode along the way.
func (a *Adapter) LookUpInode(op *fuseops.LookUpInodeOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	parentPath, ok := a.pathOf(op.Parent)
	if !ok {
		return unix.ENOENT
	}
	childPath := joinPath(parentPath, op.Name)
	childID := a.register(childPath)

	attrs, err := a.attributesFor(childID, childPath)
	if err != nil {
		delete(a.inodes, childID)
		return toErrno(err)
	}

	op.Entry.Child = childID
	op.Entry.Attributes = attrs
	return nil
}

// GetInodeAttributes refreshes the kernel's cached attributes for an inode
// it already holds.
func (a *Adapter) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	path, ok := a.pathOf(op.Inode)
	if !ok {
		return unix.ENOENT
	}

	attrs, err := a.attributesFor(op.Inode, path)
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = attrs
	return nil
}

// SetInodeAttributes supports truncation via the write-buffer pool; chmod
// and explicit timestamp changes are accepted but not persisted, since the
// store carries no mode/time metadata of its own (the single fixed
// uid/gid/mode-per-kind model described in the design notes).
func (a *Adapter) SetInodeAttributes(op *fuseops.SetInodeAttributesOp) error {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	path, ok := a.pathOf(op.Inode)
	if !ok {
		return unix.ENOENT
	}

	if op.Size != nil {
		buf, ok := a.writeBuffers[op.Inode]
		if !ok {
			// First truncate of an inode we haven't buffered yet: seed from
			// the durable contents so a truncate-extend preserves the prefix.
			buf = &writeBuffer{path: path}
			data, err := a.fm.ReadFile(path)
			if err == nil {
				buf.data = data
			}
			a.writeBuffers[op.Inode] = buf
		}
		buf.dirty = true
		newSize := int(*op.Size)
		switch {
		case newSize <= len(buf.data):
			buf.data = buf.data[:newSize]
		default:
			grown := make([]byte, newSize)
			copy(grown, buf.data)
			buf.data = grown
		}
	}

	attrs, err := a.attributesFor(op.Inode, path)
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = attrs
	return nil
}

// ForgetInode is a no-op: the adapter does not reference-count lookups, so
// there is nothing to release. The path stays in the inode table, which
// only grows for the lifetime of the mount (bounded by the number of
// distinct paths ever looked up).
func (a *Adapter) ForgetInode(op *fuseops.ForgetInodeOp) error {
	return nil
}
