package imaging

import (
	"fmt"

	"fieldkit/internal/models"
)

// Stack combines 2-D slices into a single buffer. One slice is returned
// unchanged; several become the z-slices of a 3-D buffer in the given order.
// All slices must share width, height and channel count.
func Stack(slices []*models.PixelBuffer) (*models.PixelBuffer, error) {
	if len(slices) == 0 {
		return nil, ErrEmptyBuffer
	}

	first := slices[0]
	if first.Dimension() != 2 {
		return nil, fmt.Errorf("slice 0 is %d-dimensional, expected 2", first.Dimension())
	}
	if len(slices) == 1 {
		return first, nil
	}

	width, height := first.Sizes[0], first.Sizes[1]
	sliceLen := len(first.Data)
	volume := models.NewPixelBuffer([]int{width, height, len(slices)}, first.Channels)

	for i, s := range slices {
		if s.Dimension() != 2 || s.Sizes[0] != width || s.Sizes[1] != height {
			return nil, fmt.Errorf("slice %d has sizes %v, expected [%d %d]", i, s.Sizes, width, height)
		}
		if s.Channels != first.Channels {
			return nil, fmt.Errorf("slice %d has %d channels, expected %d", i, s.Channels, first.Channels)
		}
		copy(volume.Data[i*sliceLen:(i+1)*sliceLen], s.Data)
	}

	return volume, nil
}
