package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/andresuchdata/erpflow/internal/pipeline"
	"github.com/google/uuid"
)

// Archive keeps a copy of every accepted workbook so failed uploads can be
// reprocessed after the local file is gone.
type Archive struct {
	store  ObjectStorage
	prefix string
	dir    string
}

// NewArchive stores objects under prefix and restores them into dir.
func NewArchive(store ObjectStorage, prefix, dir string) *Archive {
	return &Archive{store: store, prefix: prefix, dir: dir}
}

// Key is the object key of a stored file name. Stored names are already
// unique, so the key only adds the prefix.
func (a *Archive) Key(fileName string) string {
	return path.Join(a.prefix, fileName)
}

// Store uploads the local file and returns its object key.
func (a *Archive) Store(ctx context.Context, fileName, srcPath string) (string, error) {
	key := a.Key(fileName)
	if err := a.store.UploadFile(ctx, key, srcPath); err != nil {
		return "", err
	}
	return key, nil
}

// Restore downloads the archived workbook of u into a fresh local file.
func (a *Archive) Restore(ctx context.Context, u pipeline.Upload) (string, error) {
	if u.ObjectKey == "" {
		return "", fmt.Errorf("upload %d: %w", u.ID, pipeline.ErrNoArchive)
	}
	dest := filepath.Join(a.dir, uuid.NewString()+filepath.Ext(u.ObjectKey))
	if err := a.store.DownloadObject(ctx, u.ObjectKey, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// List returns the archived workbooks under the prefix.
func (a *Archive) List(ctx context.Context) ([]ObjectInfo, error) {
	objects, err := a.store.ListObjects(ctx, a.prefix)
	if err != nil {
		return nil, err
	}
	// Oldest first, so a backfill replays uploads in the order they arrived.
	sort.SliceStable(objects, func(i, j int) bool {
		if !objects[i].LastModified.Equal(objects[j].LastModified) {
			return objects[i].LastModified.Before(objects[j].LastModified)
		}
		return objects[i].Key < objects[j].Key
	})
	return objects, nil
}

// Fetch downloads an arbitrary object key into dir.
func (a *Archive) Fetch(ctx context.Context, key string) (string, error) {
	dest := filepath.Join(a.dir, uuid.NewString()+filepath.Ext(key))
	if err := a.store.DownloadObject(ctx, key, dest); err != nil {
		return "", err
	}
	return dest, nil
}

var _ pipeline.Archive = (*Archive)(nil)
