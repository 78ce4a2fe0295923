// Package stream describes the data sources an image field reads from and
// writes to.
//
// An Information value is a builder: the caller adds resources in order and
// hands it to exactly one read or write, which consumes it.
package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"fieldkit/pkg/imaging"
)

var (
	// ErrConsumed is returned when Information is used a second time.
	ErrConsumed = errors.New("stream information already consumed")

	// ErrNoResources is returned when Information holds no resources.
	ErrNoResources = errors.New("stream information has no resources")

	// ErrInvalidAxis is returned for a slice axis other than x, y or z.
	ErrInvalidAxis = errors.New("invalid slice axis")
)

// Resource is one data source or sink.
type Resource interface {
	// Name identifies the resource in messages and selects a format by extension.
	Name() string

	// Open returns a reader over the resource contents.
	Open() (io.ReadCloser, error)

	// Create returns a writer that replaces the resource contents.
	Create() (io.WriteCloser, error)
}

// FileResource is a file on disk. The file is not touched until it is
// opened or created.
type FileResource struct {
	path string
}

// Path returns the file path.
func (r *FileResource) Path() string { return r.path }

func (r *FileResource) Name() string { return r.path }

func (r *FileResource) Open() (io.ReadCloser, error) {
	return os.Open(r.path)
}

func (r *FileResource) Create() (io.WriteCloser, error) {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.Create(r.path)
}

// MemoryResource is an in-memory block. Buffers supplied at creation are
// copied, so later changes by the caller are not seen.
type MemoryResource struct {
	mu   sync.Mutex
	name string
	data []byte
}

func (r *MemoryResource) Name() string { return r.name }

// Bytes returns a copy of the current contents.
func (r *MemoryResource) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Clone(r.data)
}

func (r *MemoryResource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(r.Bytes())), nil
}

func (r *MemoryResource) Create() (io.WriteCloser, error) {
	return &memoryWriter{res: r}, nil
}

type memoryWriter struct {
	res *MemoryResource
	buf bytes.Buffer
}

func (w *memoryWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memoryWriter) Close() error {
	w.res.mu.Lock()
	w.res.data = w.buf.Bytes()
	w.res.mu.Unlock()
	return nil
}

// Information is an ordered list of resources bound to one owner. It is
// safe for concurrent use; only one read or write can consume it.
type Information struct {
	owner any

	mu        sync.Mutex
	resources []Resource
	format    imaging.Format
	quality   int
	axis      string
	consumed  bool
}

// NewInformation returns empty stream information bound to owner.
func NewInformation(owner any) *Information {
	return &Information{owner: owner, axis: "z"}
}

// Owner returns the value the information was created for.
func (si *Information) Owner() any { return si.owner }

// CreateStreamresourceFile appends a file resource.
func (si *Information) CreateStreamresourceFile(path string) *FileResource {
	r := &FileResource{path: path}
	si.add(r)
	return r
}

// CreateStreamresourceMemoryBuffer appends a memory resource holding a copy of data.
func (si *Information) CreateStreamresourceMemoryBuffer(data []byte) *MemoryResource {
	si.mu.Lock()
	defer si.mu.Unlock()
	r := &MemoryResource{
		name: fmt.Sprintf("memory[%d]", len(si.resources)),
		data: bytes.Clone(data),
	}
	si.resources = append(si.resources, r)
	return r
}

// CreateStreamresourceMemory appends an empty memory resource, typically
// used as a write target.
func (si *Information) CreateStreamresourceMemory() *MemoryResource {
	return si.CreateStreamresourceMemoryBuffer(nil)
}

func (si *Information) add(r Resource) {
	si.mu.Lock()
	si.resources = append(si.resources, r)
	si.mu.Unlock()
}

// AddDirectory appends a file resource for every image in dir whose format
// is recognised. Files are ordered by the number embedded in their names so
// slice_2 precedes slice_10. It returns the number of resources added.
func (si *Information) AddDirectory(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imaging.FormatFromPath(e.Name()) != imaging.FormatAuto {
			names = append(names, e.Name())
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		ni, nj := extractNumber(names[i]), extractNumber(names[j])
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		si.CreateStreamresourceFile(filepath.Join(dir, name))
	}
	return len(names), nil
}

// Resources returns the resources in the order they were added.
func (si *Information) Resources() []Resource {
	si.mu.Lock()
	defer si.mu.Unlock()
	out := make([]Resource, len(si.resources))
	copy(out, si.resources)
	return out
}

// SetFileFormat forces the format used for every resource.
func (si *Information) SetFileFormat(format imaging.Format) {
	si.mu.Lock()
	si.format = format
	si.mu.Unlock()
}

// FileFormat returns the forced format, FormatAuto if none.
func (si *Information) FileFormat() imaging.Format {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.format
}

// SetQuality sets the JPEG quality used when writing. Zero selects the default.
func (si *Information) SetQuality(quality int) {
	si.mu.Lock()
	si.quality = quality
	si.mu.Unlock()
}

// Quality returns the configured JPEG quality.
func (si *Information) Quality() int {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.quality
}

// ParseSliceAxis normalises a slice axis name. Empty means "z".
func ParseSliceAxis(axis string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(axis))
	switch a {
	case "":
		return "z", nil
	case "x", "y", "z":
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAxis, axis)
}

// SetSliceAxis selects the axis a 3-D image is cut along when written, one
// resource per slice: "x", "y" or "z" (the default).
func (si *Information) SetSliceAxis(axis string) error {
	a, err := ParseSliceAxis(axis)
	if err != nil {
		return err
	}
	si.mu.Lock()
	si.axis = a
	si.mu.Unlock()
	return nil
}

// SliceAxis returns the axis used when writing 3-D images.
func (si *Information) SliceAxis() string {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.axis
}

// FormatFor returns the format to use for r.
func (si *Information) FormatFor(r Resource) imaging.Format {
	if format := si.FileFormat(); format != imaging.FormatAuto {
		return format
	}
	return imaging.FormatFromPath(r.Name())
}

// Consume marks the information as used. It fails if it was already
// consumed or holds no resources; in that case the information is unchanged.
// Of several concurrent calls at most one succeeds.
func (si *Information) Consume() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	if si.consumed {
		return ErrConsumed
	}
	if len(si.resources) == 0 {
		return ErrNoResources
	}
	si.consumed = true
	return nil
}

// Consumed reports whether the information has been used.
func (si *Information) Consumed() bool {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.consumed
}

// extractNumber extracts the digits from a file name
func extractNumber(filename string) int {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}

	if digits.Len() > 0 {
		if num, err := strconv.Atoi(digits.String()); err == nil {
			return num
		}
	}
	return 0
}
