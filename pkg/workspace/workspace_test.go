package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sdejongh/dircompare/pkg/models"
	"github.com/sdejongh/dircompare/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrees(t *testing.T) *storage.FS {
	t.Helper()
	fs := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, fs.MkdirAll(ctx, "/old"))
	require.NoError(t, fs.MkdirAll(ctx, "/new"))
	return fs
}

func TestPrepare_CreatesBuckets(t *testing.T) {
	fs := newTrees(t)
	ctx := context.Background()

	h, err := Prepare(ctx, fs, "/old", "/new", "/results", Options{}, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/results", "New files"), h.NewFilesDir)
	assert.Equal(t, filepath.Join("/results", "Changed files"), h.ChangedFilesDir)
	assert.Equal(t, h.NewFilesDir, h.BucketFor(models.ReasonFileCreated))
	assert.Equal(t, h.ChangedFilesDir, h.BucketFor(models.ReasonFileChanged))

	for _, dir := range []string{h.NewFilesDir, h.ChangedFilesDir} {
		info, err := fs.Stat(ctx, dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir)
	}
}

func TestPrepare_CustomBucketNames(t *testing.T) {
	fs := newTrees(t)

	h, err := Prepare(context.Background(), fs, "/old", "/new", "/results", Options{NewBucket: "added", ChangedBucket: "modified"}, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/results", "added"), h.NewFilesDir)
	assert.Equal(t, filepath.Join("/results", "modified"), h.ChangedFilesDir)
}

func TestPrepare_ClearsPreviousResults(t *testing.T) {
	fs := newTrees(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/results/New files/stale.lnk", []byte("x")))
	require.NoError(t, fs.WriteFile(ctx, "/results/Changed files/nested/deep/stale", []byte("x")))
	require.NoError(t, fs.WriteFile(ctx, "/results/keep.txt", []byte("x")))

	h, err := Prepare(ctx, fs, "/old", "/new", "/results", Options{}, nil)
	require.NoError(t, err)
	assert.Empty(t, h.Diagnostics)

	for _, dir := range []string{h.NewFilesDir, h.ChangedFilesDir} {
		entries, err := fs.ReadDir(ctx, dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "bucket %s should be empty", dir)
	}

	exists, err := fs.Exists(ctx, "/results/keep.txt")
	require.NoError(t, err)
	assert.True(t, exists, "entries outside the buckets are left alone")
}

func TestPrepare_Errors(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		new     string
		results string
		kind    error
	}{
		{"MissingOld", "", "/new", "/results", models.ErrMissingArgument},
		{"MissingNew", "/old", "", "/results", models.ErrMissingArgument},
		{"MissingResults", "/old", "/new", "", models.ErrMissingArgument},
		{"OldDoesNotExist", "/nowhere", "/new", "/results", models.ErrInvalidDirectory},
		{"NewIsAFile", "/old", "/file.txt", "/results", models.ErrInvalidDirectory},
		{"ResultsIsAFile", "/old", "/new", "/file.txt", models.ErrWorkspace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newTrees(t)
			require.NoError(t, fs.WriteFile(context.Background(), "/file.txt", []byte("x")))

			h, err := Prepare(context.Background(), fs, tt.old, tt.new, tt.results, Options{}, nil)
			assert.Nil(t, h)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestPrepare_OnDisk(t *testing.T) {
	root := t.TempDir()
	oldDir := filepath.Join(root, "old")
	newDir := filepath.Join(root, "new")
	require.NoError(t, os.Mkdir(oldDir, 0755))
	require.NoError(t, os.Mkdir(newDir, 0755))

	t.Run("ResultsIsAFile", func(t *testing.T) {
		results := filepath.Join(root, "results.txt")
		require.NoError(t, os.WriteFile(results, []byte("x"), 0644))

		_, err := Prepare(context.Background(), storage.NewLocal(), oldDir, newDir, results, Options{}, nil)
		assert.ErrorIs(t, err, models.ErrWorkspace)
	})

	t.Run("RelativeRootsAreResolved", func(t *testing.T) {
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(root))
		t.Cleanup(func() { _ = os.Chdir(wd) })

		h, err := Prepare(context.Background(), storage.NewLocal(), "old", "new", "results", Options{}, nil)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "results", "New files"), h.NewFilesDir)
		assert.DirExists(t, h.ChangedFilesDir)
	})
}
