// Package visualization extracts 2-D views from 3-D pixel buffers.
package visualization

import (
	"fmt"

	"fieldkit/internal/models"
)

// Viewer gives access to planar slices of a 3-D buffer.
type Viewer struct {
	volume *models.PixelBuffer

	// dimensions of the volume
	width  int
	height int
	depth  int
}

// NewViewer creates a viewer over a 3-D buffer. The buffer is not copied.
func NewViewer(volume *models.PixelBuffer) (*Viewer, error) {
	if volume == nil || volume.Dimension() != 3 {
		return nil, fmt.Errorf("viewer needs a 3-dimensional buffer")
	}
	if err := volume.Validate(); err != nil {
		return nil, err
	}
	return &Viewer{
		volume: volume,
		width:  volume.Sizes[0],
		height: volume.Sizes[1],
		depth:  volume.Sizes[2],
	}, nil
}

// SliceCount returns the number of slices along axis.
func (v *Viewer) SliceCount(axis string) (int, error) {
	switch axis {
	case "x", "X":
		return v.width, nil
	case "y", "Y":
		return v.height, nil
	case "z", "Z":
		return v.depth, nil
	}
	return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// ExtractSlice extracts a 2-D slice perpendicular to axis.
//
// An x slice spans (z, y), a y slice spans (x, z) and a z slice spans (x, y),
// all channels included.
func (v *Viewer) ExtractSlice(axis string, position int) (*models.PixelBuffer, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	count, err := v.SliceCount(axis)
	if err != nil {
		return nil, err
	}
	if position >= count {
		return nil, fmt.Errorf("position %d exceeds %s extent %d", position, axis, count)
	}

	var slice *models.PixelBuffer
	switch axis {
	case "x", "X":
		slice = models.NewPixelBuffer([]int{v.depth, v.height}, v.volume.Channels)
		for y := 0; y < v.height; y++ {
			for z := 0; z < v.depth; z++ {
				v.copyPixel(slice, y*v.depth+z, position, y, z)
			}
		}
	case "y", "Y":
		slice = models.NewPixelBuffer([]int{v.width, v.depth}, v.volume.Channels)
		for z := 0; z < v.depth; z++ {
			for x := 0; x < v.width; x++ {
				v.copyPixel(slice, z*v.width+x, x, position, z)
			}
		}
	default:
		slice = models.NewPixelBuffer([]int{v.width, v.height}, v.volume.Channels)
		plane := v.width * v.height * v.volume.Channels
		copy(slice.Data, v.volume.Data[position*plane:(position+1)*plane])
	}

	return slice, nil
}

func (v *Viewer) copyPixel(dst *models.PixelBuffer, dstPixel, x, y, z int) {
	c := v.volume.Channels
	src := ((z*v.height+y)*v.width + x) * c
	copy(dst.Data[dstPixel*c:(dstPixel+1)*c], v.volume.Data[src:src+c])
}

// Slices returns every slice along axis in order.
func (v *Viewer) Slices(axis string) ([]*models.PixelBuffer, error) {
	count, err := v.SliceCount(axis)
	if err != nil {
		return nil, err
	}

	slices := make([]*models.PixelBuffer, count)
	for pos := 0; pos < count; pos++ {
		if slices[pos], err = v.ExtractSlice(axis, pos); err != nil {
			return nil, err
		}
	}
	return slices, nil
}
