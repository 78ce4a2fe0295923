// Package field implements fields owned by a field module: image fields read
// from stream resources and mean image filter fields derived from them.
package field

import (
	"context"

	"fieldkit/internal/models"
)

// Field is the capability shared by every field. Only types in this package
// implement it.
type Field interface {
	// Name returns the field name, unique within its module.
	Name() string

	// SetName renames the field. It fails with ErrAlreadyExists if another
	// field of the module has that name.
	SetName(name string) error

	// IsValid reports whether the field was constructed successfully and its
	// module is still alive.
	IsValid() bool

	// Module returns the owning module.
	Module() *Module

	// NumberOfComponents returns the number of values per point.
	NumberOfComponents() int

	// SourceFields returns the fields this field is derived from.
	SourceFields() []Field

	core() *fieldCore
}

// ImageSource is a field whose value is an image: an ImageField or a filter
// over one.
type ImageSource interface {
	Field

	// Dimension returns the number of spatial dimensions of the image.
	Dimension() int

	// Sizes returns the image size along each dimension.
	Sizes() []int

	// Populated reports whether pixel data is available.
	Populated() bool

	evaluateImage(ctx context.Context) (*models.PixelBuffer, error)
}

// fieldCore holds the bookkeeping common to all fields.
type fieldCore struct {
	module   *Module
	name     string
	typeName string
	sources  []Field
}

func (c *fieldCore) Name() string {
	c.module.mu.Lock()
	defer c.module.mu.Unlock()
	return c.name
}

func (c *fieldCore) SetName(name string) error {
	return c.module.rename(c, name)
}

func (c *fieldCore) Module() *Module { return c.module }

func (c *fieldCore) SourceFields() []Field {
	out := make([]Field, len(c.sources))
	copy(out, c.sources)
	return out
}

// TypeName returns the registered type name, e.g. "image".
func (c *fieldCore) TypeName() string { return c.typeName }

func (c *fieldCore) alive() bool {
	return c.module != nil && c.module.IsValid()
}

// isNil reports whether f is nil or a typed nil pointer.
func isNil(f Field) bool {
	return f == nil || f.core() == nil
}
