package stream

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldkit/pkg/imaging"
)

func TestFileResourceIsLazy(t *testing.T) {
	si := NewInformation("owner")
	missing := filepath.Join(t.TempDir(), "does-not-exist.jpg")

	r := si.CreateStreamresourceFile(missing)

	assert.Equal(t, missing, r.Path())
	assert.Len(t, si.Resources(), 1)
	_, err := r.Open()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryResourceCopiesInput(t *testing.T) {
	si := NewInformation(nil)
	data := []byte("abc")

	r := si.CreateStreamresourceMemoryBuffer(data)
	data[0] = 'x'

	rc, err := r.Open()
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemoryResourceWrite(t *testing.T) {
	si := NewInformation(nil)
	r := si.CreateStreamresourceMemory()
	assert.Empty(t, r.Bytes())

	w, err := r.Create()
	require.NoError(t, err)
	_, err = w.Write([]byte("pixels"))
	require.NoError(t, err)
	assert.Empty(t, r.Bytes(), "contents are replaced on close")
	require.NoError(t, w.Close())

	assert.Equal(t, "pixels", string(r.Bytes()))
}

func TestConsumeOnce(t *testing.T) {
	si := NewInformation(nil)
	assert.ErrorIs(t, si.Consume(), ErrNoResources)
	assert.False(t, si.Consumed())

	si.CreateStreamresourceMemory()
	require.NoError(t, si.Consume())
	assert.True(t, si.Consumed())
	assert.ErrorIs(t, si.Consume(), ErrConsumed)
}

func TestOwner(t *testing.T) {
	owner := &struct{ name string }{"image"}
	assert.Same(t, owner, NewInformation(owner).Owner())
}

func TestFormatFor(t *testing.T) {
	si := NewInformation(nil)
	jpg := si.CreateStreamresourceFile("a.jpeg")
	mem := si.CreateStreamresourceMemory()

	assert.Equal(t, imaging.FormatJPEG, si.FormatFor(jpg))
	assert.Equal(t, imaging.FormatAuto, si.FormatFor(mem))

	si.SetFileFormat(imaging.FormatPNG)
	assert.Equal(t, imaging.FormatPNG, si.FileFormat())
	assert.Equal(t, imaging.FormatPNG, si.FormatFor(jpg))
	assert.Equal(t, imaging.FormatPNG, si.FormatFor(mem))

	si.SetQuality(75)
	assert.Equal(t, 75, si.Quality())
}

func TestAddDirectoryOrdersNumerically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"slice_10.jpg", "slice_2.jpg", "slice_1.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0755))

	si := NewInformation(nil)
	n, err := si.AddDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var names []string
	for _, r := range si.Resources() {
		names = append(names, filepath.Base(r.Name()))
	}
	assert.Equal(t, []string{"slice_1.png", "slice_2.jpg", "slice_10.jpg"}, names)
}

func TestAddDirectoryMissing(t *testing.T) {
	si := NewInformation(nil)
	_, err := si.AddDirectory(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
	assert.Empty(t, si.Resources())
}

func TestFileResourceCreateMakesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.png")
	r := NewInformation(nil).CreateStreamresourceFile(path)

	w, err := r.Create()
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

func TestConsumeConcurrently(t *testing.T) {
	for round := 0; round < 20; round++ {
		si := NewInformation("owner")
		si.CreateStreamresourceMemory()

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if si.Consume() == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load(), "exactly one caller consumes the information")
		assert.True(t, si.Consumed())
	}
}

func TestSliceAxis(t *testing.T) {
	si := NewInformation("owner")
	assert.Equal(t, "z", si.SliceAxis())

	require.NoError(t, si.SetSliceAxis("X"))
	assert.Equal(t, "x", si.SliceAxis())
	require.NoError(t, si.SetSliceAxis(""))
	assert.Equal(t, "z", si.SliceAxis())

	assert.ErrorIs(t, si.SetSliceAxis("w"), ErrInvalidAxis)
	assert.Equal(t, "z", si.SliceAxis())

	axis, err := ParseSliceAxis(" Y ")
	require.NoError(t, err)
	assert.Equal(t, "y", axis)
}
