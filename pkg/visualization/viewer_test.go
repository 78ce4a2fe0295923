package visualization

import (
	"testing"

	"fieldkit/internal/models"
)

// newTestVolume fills a volume so every voxel encodes its own coordinates
func newTestVolume(width, height, depth, channels int) *models.PixelBuffer {
	volume := models.NewPixelBuffer([]int{width, height, depth}, channels)
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				for c := 0; c < channels; c++ {
					idx := ((z*height+y)*width+x)*channels + c
					volume.Data[idx] = encode(x, y, z, c)
				}
			}
		}
	}
	return volume
}

func encode(x, y, z, c int) float64 {
	return float64(x*1000+y*100+z*10+c) / 10000.0
}

// TestNewViewer verifies that a viewer only accepts well-formed 3-D buffers
func TestNewViewer(t *testing.T) {
	viewer, err := NewViewer(newTestVolume(4, 3, 2, 1))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	if viewer.width != 4 || viewer.height != 3 || viewer.depth != 2 {
		t.Errorf("Expected 4x3x2, got %dx%dx%d", viewer.width, viewer.height, viewer.depth)
	}

	if _, err := NewViewer(models.NewPixelBuffer([]int{4, 3}, 1)); err == nil {
		t.Errorf("Expected error for 2-D buffer")
	}

	broken := newTestVolume(2, 2, 2, 1)
	broken.Data = broken.Data[:3]
	if _, err := NewViewer(broken); err == nil {
		t.Errorf("Expected error for truncated buffer")
	}
}

// TestExtractSlice verifies slices along every axis pick the right voxels
func TestExtractSlice(t *testing.T) {
	width, height, depth, channels := 4, 3, 5, 2
	viewer, err := NewViewer(newTestVolume(width, height, depth, channels))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	// Z slice spans (x, y)
	zs, err := viewer.ExtractSlice("z", 3)
	if err != nil {
		t.Fatalf("Failed to extract Z slice: %v", err)
	}
	if zs.Sizes[0] != width || zs.Sizes[1] != height {
		t.Errorf("Unexpected Z slice sizes %v", zs.Sizes)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for c := 0; c < channels; c++ {
				got := zs.Data[(y*width+x)*channels+c]
				if want := encode(x, y, 3, c); got != want {
					t.Errorf("Z slice (%d,%d,%d): expected %f, got %f", x, y, c, want, got)
				}
			}
		}
	}

	// Y slice spans (x, z)
	ys, err := viewer.ExtractSlice("Y", 1)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if ys.Sizes[0] != width || ys.Sizes[1] != depth {
		t.Errorf("Unexpected Y slice sizes %v", ys.Sizes)
	}
	if got, want := ys.Data[(4*width+2)*channels+1], encode(2, 1, 4, 1); got != want {
		t.Errorf("Y slice: expected %f, got %f", want, got)
	}

	// X slice spans (z, y)
	xs, err := viewer.ExtractSlice("x", 2)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if xs.Sizes[0] != depth || xs.Sizes[1] != height {
		t.Errorf("Unexpected X slice sizes %v", xs.Sizes)
	}
	if got, want := xs.Data[(1*depth+3)*channels], encode(2, 1, 3, 0); got != want {
		t.Errorf("X slice: expected %f, got %f", want, got)
	}
}

// TestExtractSliceErrors checks bounds and axis validation
func TestExtractSliceErrors(t *testing.T) {
	viewer, err := NewViewer(newTestVolume(2, 2, 2, 1))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	cases := []struct {
		axis     string
		position int
	}{
		{"z", -1},
		{"z", 2},
		{"x", 5},
		{"w", 0},
	}
	for _, tc := range cases {
		if _, err := viewer.ExtractSlice(tc.axis, tc.position); err == nil {
			t.Errorf("Expected error for axis %q position %d", tc.axis, tc.position)
		}
	}
}

// TestSlices verifies the full sequence is returned in order
func TestSlices(t *testing.T) {
	viewer, err := NewViewer(newTestVolume(3, 2, 4, 1))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	slices, err := viewer.Slices("z")
	if err != nil {
		t.Fatalf("Failed to extract slices: %v", err)
	}
	if len(slices) != 4 {
		t.Fatalf("Expected 4 slices, got %d", len(slices))
	}
	for z, s := range slices {
		if got, want := s.Data[0], encode(0, 0, z, 0); got != want {
			t.Errorf("Slice %d: expected %f, got %f", z, want, got)
		}
	}

	if _, err := viewer.Slices("q"); err == nil {
		t.Errorf("Expected error for invalid axis")
	}
}
