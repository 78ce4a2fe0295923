package imaging

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"fieldkit/internal/models"
)

// MaxRadius is the largest radius whose window width 2*r+1 fits in an int.
const MaxRadius = (math.MaxInt - 1) / 2

// MeanFilter replaces every sample with the arithmetic mean of the samples
// in a window of 2*radius+1 pixels per dimension, independently per channel.
// Samples outside the image take the value of the nearest edge pixel.
//
// The box is separable, so the filter runs one pass per dimension. Each pass
// splits its lines across up to workers goroutines. The source buffer is
// never modified.
func MeanFilter(ctx context.Context, src *models.PixelBuffer, radii []int, workers int) (*models.PixelBuffer, error) {
	if src.Empty() {
		return nil, ErrEmptyBuffer
	}
	if len(radii) != src.Dimension() {
		return nil, fmt.Errorf("got %d radii for a %d-dimensional image", len(radii), src.Dimension())
	}
	for d, r := range radii {
		if r < 0 || r > MaxRadius {
			return nil, fmt.Errorf("radius %d in dimension %d is outside [0, %d]", r, d, MaxRadius)
		}
	}
	if workers < 1 {
		workers = 1
	}

	cur := src
	for dim, r := range radii {
		if r == 0 || src.Sizes[dim] == 1 {
			continue
		}
		next := models.NewPixelBuffer(src.Sizes, src.Channels)
		if err := boxPass(ctx, cur, next, dim, r, workers); err != nil {
			return nil, err
		}
		cur = next
	}

	if cur == src {
		return src.Clone(), nil
	}
	return cur, nil
}

// boxPass averages every line of src along dim into dst.
func boxPass(ctx context.Context, src, dst *models.PixelBuffer, dim, radius, workers int) error {
	n := src.Sizes[dim]
	stride := src.Stride(dim)
	lines := len(src.Data) / n

	// Several chunks per worker keeps goroutines busy when line costs differ.
	chunks := workers * 4
	if chunks > lines {
		chunks = lines
	}
	chunkSize := (lines + chunks - 1) / chunks

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for first := 0; first < lines; first += chunkSize {
		last := first + chunkSize
		if last > lines {
			last = lines
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			prefix := make([]float64, n+1)
			for line := first; line < last; line++ {
				start := (line/stride)*stride*n + line%stride
				boxLine(src.Data, dst.Data, start, stride, n, radius, prefix)
			}
			return nil
		})
	}

	return g.Wait()
}

// boxLine computes the windowed mean of one line from prefix sums over its n
// samples. Window positions beyond either end count the edge sample, so the
// work per line does not depend on the radius.
func boxLine(src, dst []float64, start, stride, n, radius int, prefix []float64) {
	width := 2*float64(radius) + 1
	first := src[start]
	last := src[start+(n-1)*stride]

	prefix[0] = 0
	for j := 0; j < n; j++ {
		prefix[j+1] = prefix[j] + src[start+j*stride]
	}

	for i := 0; i < n; i++ {
		lo, hi := 0, n-1
		var left, right int
		if radius > i {
			left = radius - i
		} else {
			lo = i - radius
		}
		if radius > n-1-i {
			right = radius - (n - 1 - i)
		} else {
			hi = i + radius
		}

		sum := prefix[hi+1] - prefix[lo]
		sum += float64(left)*first + float64(right)*last
		dst[start+i*stride] = sum / width
	}
}
