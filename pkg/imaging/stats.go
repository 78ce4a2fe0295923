package imaging

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"fieldkit/internal/models"
)

// Stats summarises the samples of a buffer.
type Stats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// ComputeStats returns summary statistics over every sample of buf.
func ComputeStats(buf *models.PixelBuffer) (Stats, error) {
	if buf.Empty() {
		return Stats{}, ErrEmptyBuffer
	}
	return Stats{
		Mean:   stat.Mean(buf.Data, nil),
		StdDev: stat.StdDev(buf.Data, nil),
		Min:    floats.Min(buf.Data),
		Max:    floats.Max(buf.Data),
	}, nil
}

// RMSE computes the root mean square error between two buffers of equal shape.
func RMSE(a, b *models.PixelBuffer) (float64, error) {
	if err := sameShape(a, b); err != nil {
		return 0, err
	}

	diff := make([]float64, len(a.Data))
	floats.SubTo(diff, a.Data, b.Data)
	return math.Sqrt(floats.Dot(diff, diff) / float64(len(diff))), nil
}

// SSIM computes the global structural similarity index between two buffers
// of equal shape. Samples are assumed to lie in [0, 1].
func SSIM(a, b *models.PixelBuffer) (float64, error) {
	if err := sameShape(a, b); err != nil {
		return 0, err
	}

	const L = 1.0
	const k1 = 0.01
	const k2 = 0.03

	c1 := (k1 * L) * (k1 * L)
	c2 := (k2 * L) * (k2 * L)

	muX := stat.Mean(a.Data, nil)
	muY := stat.Mean(b.Data, nil)

	// Single-sample buffers have no variance
	var sigmaX, sigmaY, sigmaXY float64
	if len(a.Data) > 1 {
		sigmaX = stat.Variance(a.Data, nil)
		sigmaY = stat.Variance(b.Data, nil)
		sigmaXY = stat.Covariance(a.Data, b.Data, nil)
	}

	num := (2*muX*muY + c1) * (2*sigmaXY + c2)
	den := (muX*muX + muY*muY + c1) * (sigmaX + sigmaY + c2)
	return num / den, nil
}

func sameShape(a, b *models.PixelBuffer) error {
	if a.Empty() || b.Empty() {
		return ErrEmptyBuffer
	}
	if a.Channels != b.Channels || len(a.Data) != len(b.Data) || a.Dimension() != b.Dimension() {
		return fmt.Errorf("buffers differ in shape: %v x%d vs %v x%d", a.Sizes, a.Channels, b.Sizes, b.Channels)
	}
	for d := range a.Sizes {
		if a.Sizes[d] != b.Sizes[d] {
			return fmt.Errorf("buffers differ in shape: %v vs %v", a.Sizes, b.Sizes)
		}
	}
	return nil
}
