package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/sdejongh/dircompare/pkg/compare"
	"github.com/sdejongh/dircompare/pkg/models"
	"github.com/sdejongh/dircompare/pkg/pointer"
	"github.com/sdejongh/dircompare/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelper builds old and new trees in memory
type TestHelper struct {
	t  *testing.T
	fs *storage.FS
}

func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()
	fs := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, fs.MkdirAll(ctx, "/old"))
	require.NoError(t, fs.MkdirAll(ctx, "/new"))
	return &TestHelper{t: t, fs: fs}
}

func (h *TestHelper) Write(path, content string) {
	h.t.Helper()
	require.NoError(h.t, h.fs.WriteFile(context.Background(), path, []byte(content)))
}

func (h *TestHelper) Remove(path string) {
	h.t.Helper()
	require.NoError(h.t, h.fs.RemoveAll(context.Background(), path))
}

func (h *TestHelper) Exists(path string) bool {
	h.t.Helper()
	ok, err := h.fs.Exists(context.Background(), path)
	require.NoError(h.t, err)
	return ok
}

func (h *TestHelper) Options() Options {
	creator, err := pointer.New(pointer.KindURL, h.fs)
	require.NoError(h.t, err)
	return Options{FS: h.fs, Pointers: creator}
}

func (h *TestHelper) Run(opts Options) *Outcome {
	h.t.Helper()
	task := NewTask("/old", "/new", "/results", opts)
	outcome, err := task.Run(context.Background())
	require.NoError(h.t, err)
	return outcome
}

func (h *TestHelper) RunCompleted() *Outcome {
	h.t.Helper()
	outcome := h.Run(h.Options())
	require.Equal(h.t, models.StatusCompleted, outcome.Status, "err: %v", outcome.Err)
	require.NotNil(h.t, outcome.Summary)
	return outcome
}

func TestScenarios(t *testing.T) {
	t.Run("A_NewFile", func(t *testing.T) {
		h := NewTestHelper(t)
		h.Write("/new/a.txt", "0123456789")

		out := h.RunCompleted()
		assert.Equal(t, []string{"/new/a.txt"}, out.Result.NewFiles.Sorted())
		assert.Zero(t, out.Result.ChangedFiles.Len())
		assert.Zero(t, out.Result.DeletedFiles.Len())
		assert.Zero(t, out.Result.ZeroByteFiles.Len())
		assert.Equal(t, 1, out.Summary.AddedCount)
		assert.Equal(t, 0, out.Summary.ChangedCount)
		assert.Equal(t, 0, out.Summary.DeletedCount)
	})

	t.Run("B_Identical", func(t *testing.T) {
		h := NewTestHelper(t)
		h.Write("/old/a.txt", "same")
		h.Write("/new/a.txt", "same")

		out := h.RunCompleted()
		assert.True(t, out.Result.Identical())
		assert.True(t, out.Summary.Identical())
	})

	t.Run("C_Changed", func(t *testing.T) {
		h := NewTestHelper(t)
		h.Write("/old/a.txt", "abc")
		h.Write("/new/a.txt", "abd")

		out := h.RunCompleted()
		assert.Equal(t, []string{"/new/a.txt"}, out.Result.ChangedFiles.Sorted())
		assert.Zero(t, out.Result.NewFiles.Len())
	})

	t.Run("D_Deleted", func(t *testing.T) {
		h := NewTestHelper(t)
		h.Write("/old/b.txt", "b")

		out := h.RunCompleted()
		assert.Equal(t, []string{"/old/b.txt"}, out.Result.DeletedFiles.Sorted())
		assert.Equal(t, 1, out.Summary.DeletedCount)
	})

	t.Run("E_EmptyNewFile", func(t *testing.T) {
		h := NewTestHelper(t)
		h.Write("/new/empty.txt", "")

		out := h.RunCompleted()
		assert.True(t, out.Result.NewFiles.Contains("/new/empty.txt"))
		assert.True(t, out.Result.ZeroByteFiles.Contains("/new/empty.txt"))
	})
}

func populate(h *TestHelper) {
	h.Write("/old/same.txt", "same")
	h.Write("/new/same.txt", "same")
	h.Write("/old/docs/changed.md", "v1")
	h.Write("/new/docs/changed.md", "v2")
	h.Write("/old/docs/gone.md", "bye")
	h.Write("/new/docs/deep/added.bin", "\x00\x01")
	h.Write("/new/empty", "")
	h.Write("/old/empty-both", "")
	h.Write("/new/empty-both", "")
	h.Write("/old/tree/only/old.txt", "x")
}

func TestCompleteness(t *testing.T) {
	h := NewTestHelper(t)
	populate(h)

	out := h.RunCompleted()
	r := out.Result

	newTree := []string{"/new/same.txt", "/new/docs/changed.md", "/new/docs/deep/added.bin", "/new/empty", "/new/empty-both"}
	for _, p := range newTree {
		n := 0
		if r.NewFiles.Contains(p) {
			n++
		}
		if r.ChangedFiles.Contains(p) {
			n++
		}
		assert.LessOrEqual(t, n, 1, "%s is in both new and changed", p)
	}

	assert.Equal(t, []string{"/new/docs/deep/added.bin", "/new/empty"}, r.NewFiles.Sorted())
	assert.Equal(t, []string{"/new/docs/changed.md"}, r.ChangedFiles.Sorted())
	assert.Equal(t, []string{"/new/empty", "/new/empty-both"}, r.ZeroByteFiles.Sorted())
	assert.Equal(t, []string{"/old/docs/gone.md", "/old/tree/only/old.txt"}, r.DeletedFiles.Sorted())

	assert.EqualValues(t, 5, out.Summary.TotalNewFiles)
	assert.EqualValues(t, 5, out.Summary.TotalOldFiles)
}

func TestIdempotence(t *testing.T) {
	h := NewTestHelper(t)
	populate(h)

	first := h.RunCompleted()
	second := h.RunCompleted()

	assert.Equal(t, first.Result, second.Result)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestPointers(t *testing.T) {
	h := NewTestHelper(t)
	populate(h)

	h.Write("/results/New files/stale.url", "old run")

	out := h.RunCompleted()
	assert.Empty(t, out.Summary.PointerFailures)
	assert.Equal(t, 0, out.Summary.ExitCode())

	assert.True(t, h.Exists(filepath.Join("/results/New files", "added.url")))
	assert.True(t, h.Exists(filepath.Join("/results/New files", "empty.url")))
	assert.True(t, h.Exists(filepath.Join("/results/Changed files", "changed.url")))
	assert.False(t, h.Exists(filepath.Join("/results/New files", "stale.url")), "previous results are cleared")
	assert.False(t, h.Exists(filepath.Join("/results/Changed files", "same.url")))
}

// failingCreator fails for targets listed in fail
type failingCreator struct {
	pointer.Creator
	fail map[string]bool
}

func (c *failingCreator) CreatePointer(ctx context.Context, target, destination string) error {
	if c.fail[target] {
		return errors.New("permission denied")
	}
	return c.Creator.CreatePointer(ctx, target, destination)
}

func TestPointerFailuresAreCollected(t *testing.T) {
	h := NewTestHelper(t)
	populate(h)

	opts := h.Options()
	opts.Pointers = &failingCreator{Creator: opts.Pointers, fail: map[string]bool{"/new/docs/deep/added.bin": true}}

	out := h.Run(opts)
	require.Equal(t, models.StatusCompleted, out.Status)
	require.Len(t, out.Summary.PointerFailures, 1)

	failure := out.Summary.PointerFailures[0]
	assert.Equal(t, "/new/docs/deep/added.bin", failure.Target)
	assert.Equal(t, models.ReasonFileCreated, failure.Reason)
	assert.Contains(t, failure.Error, "permission denied")
	assert.Equal(t, 1, out.Summary.ExitCode())

	// The remaining pointers are still created
	assert.True(t, h.Exists("/results/New files/empty.url"))
	assert.True(t, h.Exists("/results/Changed files/changed.url"))
}

func TestPointerNameCollision(t *testing.T) {
	h := NewTestHelper(t)
	h.Write("/new/a/x.txt", "a")
	h.Write("/new/b/x.md", "b")

	out := h.RunCompleted()
	assert.Equal(t, 2, out.Summary.AddedCount)
	require.Len(t, out.Summary.PointerFailures, 1)

	failure := out.Summary.PointerFailures[0]
	assert.Equal(t, "/new/a/x.txt", failure.Target)
	assert.Equal(t, "/results/New files/x.url", failure.Destination)
	assert.Contains(t, failure.Error, "/new/b/x.md")
	assert.Equal(t, 1, out.Summary.ExitCode())

	r, err := h.fs.Open(context.Background(), "/results/New files/x.url")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file:///new/b/x.md")
}

// cancellingComparator cancels the run on its nth call
type cancellingComparator struct {
	compare.Comparator
	calls  atomic.Int32
	n      int32
	cancel func()
}

func (c *cancellingComparator) FilesEqual(ctx context.Context, a, b string) (bool, error) {
	if c.calls.Add(1) == c.n {
		c.cancel()
	}
	return c.Comparator.FilesEqual(ctx, a, b)
}

func TestCancellation(t *testing.T) {
	h := NewTestHelper(t)
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		h.Write("/old/"+name, name)
		h.Write("/new/"+name, name+"!")
	}

	opts := h.Options()
	cmp := &cancellingComparator{Comparator: compare.NewBinaryComparator(h.fs, 0), n: 3}
	opts.Comparator = cmp

	task := NewTask("/old", "/new", "/results", opts)
	cmp.cancel = task.Cancel

	out, err := task.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, out.Status)
	assert.Equal(t, models.StatusCancelled, task.Status())
	assert.Nil(t, out.Summary)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.EqualValues(t, 3, cmp.calls.Load(), "no comparison starts after cancellation")

	processed, _ := task.Progress()
	assert.Less(t, processed, int64(12))
}

func TestCancelBeforeStart(t *testing.T) {
	h := NewTestHelper(t)
	h.Write("/new/a.txt", "a")

	task := NewTask("/old", "/new", "/results", h.Options())
	task.Cancel()

	out, err := task.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, out.Status)
}

func TestParentContextCancellation(t *testing.T) {
	h := NewTestHelper(t)
	h.Write("/new/a.txt", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := h.Options()
	opts.EventBuffer = 64
	task := NewTask("/old", "/new", "/results", opts)
	require.NoError(t, task.Start(ctx))

	var last models.ProgressEvent
	for ev := range task.Events() {
		last = ev
	}
	out := task.Wait()

	assert.Equal(t, models.StatusCancelled, out.Status)
	assert.Equal(t, models.PhaseDone, last.Phase)
	assert.Less(t, last.Percent, 100, "a cancelled run does not report full completion")
}

// vanishingComparator removes the old file before comparing it
type vanishingComparator struct {
	compare.Comparator
	h      *TestHelper
	victim string
}

func (c *vanishingComparator) FilesEqual(ctx context.Context, a, b string) (bool, error) {
	if a == c.victim {
		c.h.Remove(a)
	}
	return c.Comparator.FilesEqual(ctx, a, b)
}

func TestVanishedFile(t *testing.T) {
	setup := func(t *testing.T, skip bool) (*TestHelper, Options) {
		h := NewTestHelper(t)
		h.Write("/old/a.txt", "a")
		h.Write("/new/a.txt", "a")
		h.Write("/old/b.txt", "b")
		h.Write("/new/b.txt", "b2")

		opts := h.Options()
		opts.SkipVanished = skip
		opts.Comparator = &vanishingComparator{
			Comparator: compare.NewBinaryComparator(h.fs, 0),
			h:          h,
			victim:     "/old/a.txt",
		}
		return h, opts
	}

	t.Run("AbortsByDefault", func(t *testing.T) {
		h, opts := setup(t, false)
		out := h.Run(opts)

		assert.Equal(t, models.StatusFailed, out.Status)
		assert.ErrorIs(t, out.Err, models.ErrFileVanished)
		assert.Contains(t, out.Err.Error(), "/old/a.txt")
		assert.Nil(t, out.Summary)
	})

	t.Run("SkipAndContinue", func(t *testing.T) {
		h, opts := setup(t, true)
		out := h.Run(opts)

		require.Equal(t, models.StatusCompleted, out.Status)
		assert.Equal(t, []string{"/new/b.txt"}, out.Result.ChangedFiles.Sorted())
		assert.False(t, out.Result.ChangedFiles.Contains("/new/a.txt"))
	})
}

func TestSetupFailures(t *testing.T) {
	h := NewTestHelper(t)

	t.Run("InvalidOldRoot", func(t *testing.T) {
		out, err := NewTask("/missing", "/new", "/results", h.Options()).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, out.Status)
		assert.ErrorIs(t, out.Err, models.ErrInvalidDirectory)
	})

	t.Run("MissingResults", func(t *testing.T) {
		out, err := NewTask("/old", "/new", "", h.Options()).Run(context.Background())
		require.NoError(t, err)
		assert.ErrorIs(t, out.Err, models.ErrMissingArgument)
	})
}

func TestFileDirectoryCollision(t *testing.T) {
	h := NewTestHelper(t)
	h.Write("/old/thing/inner.txt", "x")
	h.Write("/new/thing", "now a file")

	out := h.RunCompleted()
	assert.True(t, out.Result.ChangedFiles.Contains("/new/thing"))
	assert.True(t, out.Result.DeletedFiles.Contains("/old/thing/inner.txt"))
}

func TestLinkedDirectories(t *testing.T) {
	base := t.TempDir()
	oldRoot := filepath.Join(base, "old")
	newRoot := filepath.Join(base, "new")
	linked := filepath.Join(base, "elsewhere")

	write := func(path, content string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	write(filepath.Join(oldRoot, "sub", "x.txt"), "v1")
	write(filepath.Join(oldRoot, "sub", "gone.txt"), "gone")
	write(filepath.Join(linked, "x.txt"), "v2-changed")
	write(filepath.Join(linked, "extra.txt"), "extra")
	require.NoError(t, os.MkdirAll(newRoot, 0755))
	require.NoError(t, os.Symlink(linked, filepath.Join(newRoot, "sub")))

	fs := storage.NewLocal()
	creator, err := pointer.New(pointer.KindURL, fs)
	require.NoError(t, err)

	task := NewTask(oldRoot, newRoot, filepath.Join(base, "results"), Options{FS: fs, Pointers: creator})
	out, err := task.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, out.Status, "err: %v", out.Err)

	assert.Equal(t, []string{filepath.Join(newRoot, "sub", "x.txt")}, out.Result.ChangedFiles.Sorted())
	assert.Equal(t, []string{filepath.Join(newRoot, "sub", "extra.txt")}, out.Result.NewFiles.Sorted())
	assert.Equal(t, []string{filepath.Join(oldRoot, "sub", "gone.txt")}, out.Result.DeletedFiles.Sorted())
	assert.EqualValues(t, 2, out.Summary.TotalNewFiles)
	assert.False(t, out.Summary.Identical())
}

func TestProgressEvents(t *testing.T) {
	h := NewTestHelper(t)
	populate(h)

	opts := h.Options()
	opts.EventBuffer = 1024
	task := NewTask("/old", "/new", "/results", opts)
	require.NoError(t, task.Start(context.Background()))

	var events []models.ProgressEvent
	for ev := range task.Events() {
		events = append(events, ev)
	}
	out := task.Wait()
	require.Equal(t, models.StatusCompleted, out.Status)
	require.NotEmpty(t, events)

	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Processed, events[i-1].Processed)
		assert.GreaterOrEqual(t, events[i].Percent, events[i-1].Percent)
		assert.GreaterOrEqual(t, events[i].Phase, events[i-1].Phase)
	}

	last := events[len(events)-1]
	assert.Equal(t, models.PhaseDone, last.Phase)
	assert.Equal(t, 100, last.Percent)
	assert.EqualValues(t, 10, last.Processed)
	assert.EqualValues(t, 10, last.Total)
}

func TestTaskReuse(t *testing.T) {
	h := NewTestHelper(t)
	task := NewTask("/old", "/new", "/results", h.Options())

	_, err := task.Run(context.Background())
	require.NoError(t, err)

	_, err = task.Run(context.Background())
	assert.ErrorIs(t, err, ErrTaskReused)
}

func TestCountFiles(t *testing.T) {
	h := NewTestHelper(t)
	populate(h)

	n, err := CountFiles(context.Background(), h.fs, "/new")
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CountFiles(ctx, h.fs, "/new")
	assert.ErrorIs(t, err, context.Canceled)
}
