package models

import "fmt"

// PixelBuffer holds N-dimensional, multi-channel image samples.
//
// Samples are stored as a flat slice with the channel index varying fastest,
// then x, then y, then z:
//
//	index = ((z*Sizes[1]+y)*Sizes[0]+x)*Channels + c
//
// Sample values are normalised to the range [0, 1].
type PixelBuffer struct {
	// Data is the flat sample array
	Data []float64

	// Sizes is the number of pixels along each spatial dimension
	Sizes []int

	// Channels is the number of components per pixel
	Channels int
}

// NewPixelBuffer allocates a zeroed buffer with the given shape.
func NewPixelBuffer(sizes []int, channels int) *PixelBuffer {
	s := make([]int, len(sizes))
	copy(s, sizes)
	b := &PixelBuffer{Sizes: s, Channels: channels}
	b.Data = make([]float64, b.PixelCount()*channels)
	return b
}

// Dimension returns the number of spatial dimensions.
func (b *PixelBuffer) Dimension() int {
	return len(b.Sizes)
}

// PixelCount returns the product of all sizes.
func (b *PixelBuffer) PixelCount() int {
	if len(b.Sizes) == 0 {
		return 0
	}
	n := 1
	for _, s := range b.Sizes {
		n *= s
	}
	return n
}

// Empty reports whether the buffer holds no samples.
func (b *PixelBuffer) Empty() bool {
	return b == nil || b.PixelCount() == 0 || b.Channels == 0
}

// Stride returns the distance in Data between neighbouring pixels along dim.
func (b *PixelBuffer) Stride(dim int) int {
	stride := b.Channels
	for d := 0; d < dim; d++ {
		stride *= b.Sizes[d]
	}
	return stride
}

// Clone returns a deep copy of the buffer.
func (b *PixelBuffer) Clone() *PixelBuffer {
	c := NewPixelBuffer(b.Sizes, b.Channels)
	copy(c.Data, b.Data)
	return c
}

// Validate checks that Data matches the declared shape.
func (b *PixelBuffer) Validate() error {
	if b.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", b.Channels)
	}
	for d, s := range b.Sizes {
		if s < 0 {
			return fmt.Errorf("negative size %d in dimension %d", s, d)
		}
	}
	if want := b.PixelCount() * b.Channels; len(b.Data) != want {
		return fmt.Errorf("buffer holds %d samples, shape requires %d", len(b.Data), want)
	}
	return nil
}
