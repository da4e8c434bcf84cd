package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/erpflow/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dirStorage keeps objects as files under root.
type dirStorage struct {
	root string
}

func (d *dirStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	err := filepath.Walk(d.root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		key, _ := filepath.Rel(d.root, p)
		key = filepath.ToSlash(key)
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		}
		return nil
	})
	return out, err
}

func (d *dirStorage) DownloadObject(ctx context.Context, key, destPath string) error {
	data, err := os.ReadFile(filepath.Join(d.root, key))
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (d *dirStorage) UploadFile(ctx context.Context, key, srcPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	dest := filepath.Join(d.root, key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func TestArchiveStoreAndRestore(t *testing.T) {
	ctx := context.Background()
	local := t.TempDir()
	src := filepath.Join(local, "abc.xlsx")
	require.NoError(t, os.WriteFile(src, []byte("workbook"), 0o644))

	a := NewArchive(&dirStorage{root: t.TempDir()}, "uploads", local)
	key, err := a.Store(ctx, "abc.xlsx", src)
	require.NoError(t, err)
	assert.Equal(t, "uploads/abc.xlsx", key)

	restored, err := a.Restore(ctx, pipeline.Upload{ID: 7, ObjectKey: key})
	require.NoError(t, err)
	assert.NotEqual(t, src, restored)
	assert.Equal(t, ".xlsx", filepath.Ext(restored))
	data, err := os.ReadFile(restored)
	require.NoError(t, err)
	assert.Equal(t, "workbook", string(data))

	objects, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, key, objects[0].Key)
}

func TestArchiveRestoreWithoutKey(t *testing.T) {
	a := NewArchive(&dirStorage{root: t.TempDir()}, "uploads", t.TempDir())
	_, err := a.Restore(context.Background(), pipeline.Upload{ID: 3})
	assert.ErrorIs(t, err, pipeline.ErrNoArchive)
}

type listing []ObjectInfo

func (l listing) ListObjects(context.Context, string) ([]ObjectInfo, error) {
	return append([]ObjectInfo(nil), l...), nil
}
func (listing) DownloadObject(context.Context, string, string) error { return nil }
func (listing) UploadFile(context.Context, string, string) error { return nil }

func TestArchiveListOldestFirst(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	a := NewArchive(listing{
		{Key: "uploads/c.xlsx", LastModified: t0.Add(time.Hour)},
		{Key: "uploads/b.xlsx", LastModified: t0},
		{Key: "uploads/a.xlsx", LastModified: t0},
	}, "uploads", t.TempDir())

	objects, err := a.List(context.Background())
	require.NoError(t, err)
	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	assert.Equal(t, []string{"uploads/a.xlsx", "uploads/b.xlsx", "uploads/c.xlsx"}, keys)
}
