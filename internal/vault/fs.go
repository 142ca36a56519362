package vault

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"vaultnorm/internal/errors"
	"vaultnorm/internal/log"
	"vaultnorm/pkg/types"
)

// FS is a vault backed by a directory on disk. Symlinks are not followed
// and are left out of listings. Creation time is approximated with the
// modification time, which is the only timestamp Go exposes portably.
type FS struct {
	root string
}

var _ Storage = (*FS)(nil)

// NewFS opens the directory at root as a vault.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.NewFileError("invalid vault path", root, errors.InvalidPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileError("vault not found", abs, errors.FileNotFound, err)
		}
		return nil, errors.NewFileError("cannot access vault", abs, errors.FileAccessDenied, err)
	}
	if !info.IsDir() {
		return nil, errors.NewFileError("vault is not a directory", abs, errors.InvalidPath, nil)
	}
	return &FS{root: abs}, nil
}

// Dir returns the absolute vault directory.
func (s *FS) Dir() string {
	return s.root
}

// Abs converts a vault path into an absolute OS path.
func (s *FS) Abs(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(NormalizePath(p)))
}

// Rel converts an absolute OS path inside the vault into a vault path.
func (s *FS) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.NewFileError("path outside vault", abs, errors.InvalidPath, err)
	}
	return NormalizePath(filepath.ToSlash(rel)), nil
}

// Root implements Storage.
func (s *FS) Root() (*types.Item, error) {
	return s.Tree("")
}

// Tree returns the item at p with, for folders, all descendants loaded.
func (s *FS) Tree(p string) (*types.Item, error) {
	item, err := s.Get(p)
	if err != nil {
		return nil, err
	}
	if item.IsFolder() {
		if err := s.readTree(item); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (s *FS) readTree(folder *types.Item) error {
	// os.ReadDir returns entries sorted by filename.
	entries, err := os.ReadDir(s.Abs(folder.Path))
	if err != nil {
		return errors.NewFileError("cannot read folder", folder.Path, errors.FileAccessDenied, err)
	}
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between listing and stat.
			log.LogWithFields(log.F("path", entry.Name()), log.F("error", err)).Debug("Skipping entry")
			continue
		}
		child := itemFromInfo(Join(folder.Path, entry.Name()), info)
		if child.IsFolder() {
			if err := s.readTree(child); err != nil {
				return err
			}
		}
		folder.Children = append(folder.Children, child)
	}
	return nil
}

// Files implements Storage.
func (s *FS) Files() ([]*types.Item, error) {
	root, err := s.Root()
	if err != nil {
		return nil, err
	}
	var files []*types.Item
	root.Walk(func(n *types.Item) {
		if !n.IsFolder() {
			files = append(files, n)
		}
	})
	return files, nil
}

// Get implements Storage. Folders are returned without children.
func (s *FS) Get(p string) (*types.Item, error) {
	p = NormalizePath(p)
	info, err := os.Lstat(s.Abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileError("item not found", p, errors.FileNotFound, err)
		}
		return nil, errors.NewFileError("cannot access item", p, errors.FileAccessDenied, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewFileError("item not found", p, errors.FileNotFound, nil)
	}
	return itemFromInfo(p, info), nil
}

// Occupied implements Storage. On case-insensitive file systems a path that
// differs from self only by case resolves to self and is not occupied.
func (s *FS) Occupied(p string, self *types.Item) (bool, error) {
	info, err := os.Lstat(s.Abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.NewFileError("cannot access item", p, errors.FileAccessDenied, err)
	}
	if self == nil {
		return true, nil
	}
	selfInfo, err := os.Lstat(s.Abs(self.Path))
	if err != nil {
		return true, nil
	}
	return !os.SameFile(info, selfInfo), nil
}

// Move implements Storage.
func (s *FS) Move(ctx context.Context, item *types.Item, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	occupied, err := s.Occupied(newPath, item)
	if err != nil {
		return err
	}
	if occupied {
		return errors.NewFileError("destination already exists", newPath, errors.DestinationExists, nil)
	}
	if err := os.Rename(s.Abs(item.Path), s.Abs(newPath)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewFileError("item not found", item.Path, errors.FileNotFound, err)
		}
		return errors.NewFileError("move failed", item.Path, errors.FileOperationFailed, err)
	}
	return nil
}

func itemFromInfo(p string, info os.FileInfo) *types.Item {
	item := &types.Item{Path: p, Created: info.ModTime()}
	if info.IsDir() {
		item.Kind = types.KindFolder
	}
	return item
}
