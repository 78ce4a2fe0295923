package field

import (
	"context"
	"fmt"
	"slices"
	"time"

	"fieldkit/internal/models"
	"fieldkit/pkg/imaging"
)

// ImagefilterMeanField averages its source image over a box window.
// The source is referenced, not owned.
type ImagefilterMeanField struct {
	fieldCore

	radii []int
}

func (f *ImagefilterMeanField) core() *fieldCore {
	if f == nil {
		return nil
	}
	return &f.fieldCore
}

// IsValid reports whether the field was constructed and its module is alive.
func (f *ImagefilterMeanField) IsValid() bool {
	return f != nil && f.alive()
}

// SourceField returns the filtered image field.
func (f *ImagefilterMeanField) SourceField() ImageSource {
	return f.sources[0].(ImageSource)
}

// NumberOfComponents matches the source.
func (f *ImagefilterMeanField) NumberOfComponents() int {
	return f.SourceField().NumberOfComponents()
}

// Dimension matches the source.
func (f *ImagefilterMeanField) Dimension() int {
	return f.SourceField().Dimension()
}

// Sizes matches the source.
func (f *ImagefilterMeanField) Sizes() []int {
	return f.SourceField().Sizes()
}

// Populated reports whether the source holds pixel data.
func (f *ImagefilterMeanField) Populated() bool {
	return f.SourceField().Populated()
}

// RadiusSizes returns the radius sequence the field was created with.
func (f *ImagefilterMeanField) RadiusSizes() []int {
	return slices.Clone(f.radii)
}

// Evaluate filters the current source image. The window along dimension d
// spans 2*r[d]+1 pixels; samples beyond the image edge repeat the edge pixel.
func (f *ImagefilterMeanField) Evaluate(ctx context.Context) (*models.PixelBuffer, error) {
	if !f.IsValid() {
		return nil, fmt.Errorf("%w: mean filter field is not valid", ErrInvalidArgument)
	}
	return f.evaluateImage(ctx)
}

func (f *ImagefilterMeanField) evaluateImage(ctx context.Context) (*models.PixelBuffer, error) {
	src, err := f.SourceField().evaluateImage(ctx)
	if err != nil {
		return nil, err
	}

	radii, err := expandRadii(f.radii, src.Dimension())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	m := f.module
	start := time.Now()
	out, err := imaging.MeanFilter(ctx, src, radii, m.workers)
	m.metrics.FilterSeconds.WithLabelValues("mean").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	m.logger.Debug("mean filter evaluated", "field", f.Name(), "radii", radii,
		"elapsed", time.Since(start))
	return out, nil
}

// expandRadii checks a radius sequence against an image dimension. A single
// radius is repeated for every dimension.
func expandRadii(radii []int, dimension int) ([]int, error) {
	if len(radii) == 0 {
		return nil, fmt.Errorf("radius sizes must not be empty")
	}
	for i, r := range radii {
		if r < 1 {
			return nil, fmt.Errorf("radius sizes must be positive, got %d at index %d", r, i)
		}
		if r > imaging.MaxRadius {
			return nil, fmt.Errorf("radius size %d at index %d is too large", r, i)
		}
	}

	switch len(radii) {
	case dimension:
		return slices.Clone(radii), nil
	case 1:
		out := make([]int, dimension)
		for i := range out {
			out[i] = radii[0]
		}
		return out, nil
	}
	return nil, fmt.Errorf("got %d radius sizes for a %d-dimensional image", len(radii), dimension)
}
