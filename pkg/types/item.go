package types

import (
	"path"
	"strings"
	"time"
)

// ItemKind distinguishes files from folders in a vault tree.
type ItemKind int

const (
	KindFile ItemKind = iota
	KindFolder
)

func (k ItemKind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

// Item is a file or folder in a vault. Path is vault-relative and
// '/'-separated; the vault root has the empty path.
type Item struct {
	Path     string    `json:"path"`
	Kind     ItemKind  `json:"kind"`
	Created  time.Time `json:"created,omitempty"`
	Children []*Item   `json:"children,omitempty"` // folders only, in storage order
}

// IsFolder reports whether the item is a folder.
func (i *Item) IsFolder() bool {
	return i.Kind == KindFolder
}

// IsRoot reports whether the item is the vault root.
func (i *Item) IsRoot() bool {
	return i.IsFolder() && i.Path == ""
}

// Name returns the final path segment.
func (i *Item) Name() string {
	if i.Path == "" {
		return ""
	}
	return path.Base(i.Path)
}

// ParentPath returns the path of the containing folder ("" for top level).
func (i *Item) ParentPath() string {
	idx := strings.LastIndexByte(i.Path, '/')
	if idx < 0 {
		return ""
	}
	return i.Path[:idx]
}

// Extension returns the file extension without the dot, as written.
// Folders and dotfiles have no extension.
func (i *Item) Extension() string {
	if i.IsFolder() {
		return ""
	}
	_, ext := SplitExt(i.Name())
	return strings.TrimPrefix(ext, ".")
}

// SplitExt splits name at its last dot into stem and extension (dot
// included). A dot in first position does not start an extension.
func SplitExt(name string) (stem, ext string) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}

// Walk visits the item and its descendants depth-first, parents first.
func (i *Item) Walk(fn func(*Item)) {
	fn(i)
	for _, child := range i.Children {
		child.Walk(fn)
	}
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	c := *i
	if i.Children != nil {
		c.Children = make([]*Item, len(i.Children))
		for n, child := range i.Children {
			c.Children[n] = child.Clone()
		}
	}
	return &c
}
