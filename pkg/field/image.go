package field

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"fieldkit/internal/models"
	"fieldkit/pkg/imaging"
	"fieldkit/pkg/stream"
	"fieldkit/pkg/visualization"
)

// ImageField is a field whose value is pixel data read from stream resources.
//
// A new image field is empty. A successful Read populates it, replacing any
// previous contents; a failed Read leaves it empty and records the error.
type ImageField struct {
	fieldCore

	mu      sync.RWMutex
	buffer  *models.PixelBuffer
	lastErr error
}

func (f *ImageField) core() *fieldCore {
	if f == nil {
		return nil
	}
	return &f.fieldCore
}

// IsValid reports whether the field exists and its module is alive. An empty
// image field is valid.
func (f *ImageField) IsValid() bool {
	return f != nil && f.alive()
}

// NumberOfComponents returns the number of channels, 1 while empty.
func (f *ImageField) NumberOfComponents() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.buffer.Empty() {
		return 1
	}
	return f.buffer.Channels
}

// Dimension returns the number of spatial dimensions, 2 while empty.
func (f *ImageField) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.buffer.Empty() {
		return 2
	}
	return f.buffer.Dimension()
}

// Sizes returns the image size per dimension, all zero while empty.
func (f *ImageField) Sizes() []int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.buffer.Empty() {
		return []int{0, 0}
	}
	return slices.Clone(f.buffer.Sizes)
}

// Populated reports whether the field holds pixel data.
func (f *ImageField) Populated() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return !f.buffer.Empty()
}

// Buffer returns a copy of the pixel data, or nil while empty.
func (f *ImageField) Buffer() *models.PixelBuffer {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.buffer.Empty() {
		return nil
	}
	return f.buffer.Clone()
}

// LastError returns the error of the most recent failed Read, nil after a
// successful one.
func (f *ImageField) LastError() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastErr
}

func (f *ImageField) evaluateImage(ctx context.Context) (*models.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.buffer.Empty() {
		return nil, fmt.Errorf("%w: image field %q has no pixel data", ErrInvalidArgument, f.Name())
	}
	return f.buffer, nil
}

// CreateStreaminformation returns empty stream information bound to this field.
func (f *ImageField) CreateStreaminformation() *stream.Information {
	return stream.NewInformation(f)
}

// Read decodes every resource of si in order and stores the result. One
// resource gives a 2-D image; several are stacked into a 3-D image and must
// share size and channel count.
//
// Stream information that is nil, belongs to another field or was already
// used is rejected with ErrInvalidArgument and the field is left untouched.
// Any other failure wraps ErrRead and leaves the field empty.
func (f *ImageField) Read(si *stream.Information) error {
	const op = "Read"
	if err := f.checkInformation(op, si); err != nil {
		return err
	}
	if err := si.Consume(); err != nil {
		return invalidArgument(op, "%v", err)
	}

	buf, err := decodeInformation(si)

	f.mu.Lock()
	if err != nil {
		f.buffer = nil
		f.lastErr = err
	} else {
		f.buffer = buf
		f.lastErr = nil
	}
	f.mu.Unlock()

	m := f.module
	m.metrics.Reads.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		m.logger.Warn("image read failed", "field", f.Name(), "err", err)
		return err
	}
	m.logger.Debug("image read", "field", f.Name(), "sizes", buf.Sizes, "channels", buf.Channels)
	return nil
}

func decodeInformation(si *stream.Information) (*models.PixelBuffer, error) {
	resources := si.Resources()
	decoded := make([]*models.PixelBuffer, 0, len(resources))

	for _, r := range resources {
		buf, err := decodeResource(r, si.FileFormat())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, r.Name(), err)
		}
		decoded = append(decoded, buf)
	}

	volume, err := imaging.Stack(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return volume, nil
}

func decodeResource(r stream.Resource, want imaging.Format) (*models.PixelBuffer, error) {
	rc, err := r.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf, name, err := imaging.Decode(rc)
	if err != nil {
		return nil, err
	}
	if want != imaging.FormatAuto {
		if got, _ := imaging.ParseFormat(name); got != want {
			return nil, fmt.Errorf("%w: data is %s, expected %s", imaging.ErrUnsupportedFormat, name, want)
		}
	}
	return buf, nil
}

// Write encodes the image to the resources of si: a 2-D image to exactly one
// resource, a 3-D image to one resource per slice along si.SliceAxis(), z
// unless set. An x-slice spans (z, y) and a y-slice spans (x, z).
// The format comes from si, then the resource name, then the module default,
// falling back to PNG.
func (f *ImageField) Write(si *stream.Information) error {
	const op = "Write"
	if err := f.checkInformation(op, si); err != nil {
		return err
	}

	f.mu.RLock()
	buf := f.buffer
	f.mu.RUnlock()
	if buf.Empty() {
		return invalidArgument(op, "image field %q has no pixel data", f.Name())
	}

	resources := si.Resources()
	var planes []*models.PixelBuffer
	switch buf.Dimension() {
	case 2:
		planes = []*models.PixelBuffer{buf}
	case 3:
		viewer, err := visualization.NewViewer(buf)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrWrite, err)
		}
		axis := si.SliceAxis()
		count, err := viewer.SliceCount(axis)
		if err != nil {
			return invalidArgument(op, "%v", err)
		}
		if len(resources) != count {
			return invalidArgument(op, "image has %d %s-slices but %d resources were given", count, axis, len(resources))
		}
		if planes, err = viewer.Slices(axis); err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrWrite, err)
		}
	default:
		return invalidArgument(op, "cannot write %d-dimensional image", buf.Dimension())
	}
	if len(resources) != len(planes) {
		return invalidArgument(op, "image has %d slices but %d resources were given", len(planes), len(resources))
	}
	if err := si.Consume(); err != nil {
		return invalidArgument(op, "%v", err)
	}

	m := f.module
	var err error
	for i, r := range resources {
		if err = f.writeResource(r, si, planes[i]); err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrWrite, r.Name(), err)
			break
		}
	}

	m.metrics.Writes.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		m.logger.Warn("image write failed", "field", f.Name(), "err", err)
		return err
	}
	m.logger.Debug("image written", "field", f.Name(), "resources", len(resources))
	return nil
}

func (f *ImageField) writeResource(r stream.Resource, si *stream.Information, plane *models.PixelBuffer) error {
	format := si.FormatFor(r)
	if format == imaging.FormatAuto {
		format = f.module.format
	}
	if format == imaging.FormatAuto {
		format = imaging.FormatPNG
	}

	quality := si.Quality()
	if quality == 0 {
		quality = f.module.jpegQuality
	}

	w, err := r.Create()
	if err != nil {
		return err
	}
	encErr := imaging.Encode(w, plane, format, quality)
	return errors.Join(encErr, w.Close())
}

func (f *ImageField) checkInformation(op string, si *stream.Information) error {
	if !f.IsValid() {
		return invalidArgument(op, "image field is not valid")
	}
	if si == nil {
		return &UsageError{Op: op, Arg: "streaminformation", Want: "stream information", Got: si}
	}
	if owner, ok := si.Owner().(*ImageField); !ok || owner != f {
		return invalidArgument(op, "stream information was created by a different field")
	}
	if si.Consumed() {
		return invalidArgument(op, "%v", stream.ErrConsumed)
	}
	return nil
}
