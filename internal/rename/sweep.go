package rename

import (
	"context"

	"vaultnorm/internal/errors"
	"vaultnorm/internal/log"
	"vaultnorm/pkg/types"
)

// StandardizeAll renames every eligible item in the vault. Folders go
// first, deepest first, so a parent rename never invalidates a pending
// child; files are then listed again and processed in storage order.
// Per-item failures are reported in the results; the returned error is
// only for listing failures and cancellation.
func (c *Coordinator) StandardizeAll(ctx context.Context) ([]types.RenameResult, error) {
	root, err := c.store.Root()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read vault tree")
	}

	var results []types.RenameResult
	var sweepFolders func(folder *types.Item) error
	sweepFolders = func(folder *types.Item) error {
		for _, child := range folder.Children {
			if !child.IsFolder() {
				continue
			}
			if err := sweepFolders(child); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			results = append(results, c.StandardizeFolder(ctx, child))
		}
		return nil
	}
	if err := sweepFolders(root); err != nil {
		return results, err
	}

	files, err := c.store.Files()
	if err != nil {
		return results, errors.Wrap(err, "failed to list vault files")
	}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, c.StandardizeFile(ctx, file))
	}

	moved, failed := 0, 0
	for _, r := range results {
		if r.Moved {
			moved++
		} else if r.Error != nil {
			failed++
		}
	}
	log.LogWithFields(log.F("items", len(results)), log.F("moved", moved), log.F("failed", failed)).Info("Sweep complete")
	return results, nil
}
