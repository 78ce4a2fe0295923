// Package imaging converts between decoded images and pixel buffers and
// implements the numerical image operations used by image fields.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strings"

	"fieldkit/internal/models"
)

// Format identifies an image file format.
type Format int

const (
	// FormatAuto selects the format from the resource name, or sniffs it
	// from the data when decoding.
	FormatAuto Format = iota
	FormatJPEG
	FormatPNG
	FormatGIF
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 90

var (
	// ErrUnsupportedFormat is returned for formats that cannot be decoded or encoded.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrEmptyBuffer is returned when an operation needs pixel data and there is none.
	ErrEmptyBuffer = errors.New("pixel buffer is empty")
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatGIF:
		return "gif"
	default:
		return "auto"
	}
}

// ParseFormat parses a format name such as "jpeg", "jpg", "png" or "auto".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return FormatAuto, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "gif":
		return FormatGIF, nil
	}
	return FormatAuto, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".png":
		return FormatPNG
	case ".gif":
		return FormatGIF
	}
	return FormatAuto
}

// Decode reads one image from r. The format is sniffed from the data.
func Decode(r io.Reader) (*models.PixelBuffer, string, error) {
	img, name, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return nil, "", err
	}
	return FromImage(img), name, nil
}

// FromImage converts an image into a 2-D pixel buffer.
// Grayscale images produce one channel, opaque colour images three and
// images with transparency four (non-premultiplied RGBA).
func FromImage(img image.Image) *models.PixelBuffer {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	channels := channelCount(img)
	buf := models.NewPixelBuffer([]int{width, height}, channels)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.At(x, y)
			switch channels {
			case 1:
				g := color.Gray16Model.Convert(c).(color.Gray16)
				buf.Data[i] = float64(g.Y) / 65535.0
			default:
				n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
				buf.Data[i] = float64(n.R) / 65535.0
				buf.Data[i+1] = float64(n.G) / 65535.0
				buf.Data[i+2] = float64(n.B) / 65535.0
				if channels == 4 {
					buf.Data[i+3] = float64(n.A) / 65535.0
				}
			}
			i += channels
		}
	}

	return buf
}

func channelCount(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		return 4
	}
	return 3
}

// ToImage converts a 2-D buffer with 1, 3 or 4 channels back into an image.
func ToImage(buf *models.PixelBuffer) (image.Image, error) {
	if buf.Empty() {
		return nil, ErrEmptyBuffer
	}
	if buf.Dimension() != 2 {
		return nil, fmt.Errorf("cannot convert %d-dimensional buffer to an image", buf.Dimension())
	}

	width, height := buf.Sizes[0], buf.Sizes[1]
	rect := image.Rect(0, 0, width, height)

	switch buf.Channels {
	case 1:
		img := image.NewGray16(rect)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.SetGray16(x, y, color.Gray16{Y: toSample(buf.Data[y*width+x])})
			}
		}
		return img, nil
	case 3, 4:
		img := image.NewNRGBA64(rect)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				i := (y*width + x) * buf.Channels
				c := color.NRGBA64{
					R: toSample(buf.Data[i]),
					G: toSample(buf.Data[i+1]),
					B: toSample(buf.Data[i+2]),
					A: 65535,
				}
				if buf.Channels == 4 {
					c.A = toSample(buf.Data[i+3])
				}
				img.SetNRGBA64(x, y, c)
			}
		}
		return img, nil
	}

	return nil, fmt.Errorf("cannot convert %d-channel buffer to an image", buf.Channels)
}

// Encode writes a 2-D buffer to w in the given format.
func Encode(w io.Writer, buf *models.PixelBuffer, format Format, quality int) error {
	img, err := ToImage(buf)
	if err != nil {
		return err
	}

	switch format {
	case FormatJPEG:
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		return png.Encode(w, img)
	case FormatGIF:
		return gif.Encode(w, img, nil)
	}

	return fmt.Errorf("%w: cannot encode format %s", ErrUnsupportedFormat, format)
}

func toSample(v float64) uint16 {
	return uint16(math.Round(math.Max(0, math.Min(1, v)) * 65535))
}
