package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fieldkit/pkg/field"
	"fieldkit/pkg/imaging"
	"fieldkit/pkg/stream"
)

type meanOptions struct {
	radii   []int
	outputs []string
	format  string
	quality int
	axis    string
}

func newMeanCommand(a *app) *cobra.Command {
	opts := &meanOptions{}
	cmd := &cobra.Command{
		Use:   "mean <image|directory>...",
		Short: "Smooth an image or a stack of slices with a box mean filter",
		Long: `Reads the inputs into one image field (a single file gives a 2-D image,
several files or a directory give a 3-D stack of z-slices), applies a mean
filter and writes the result. A 3-D result needs one --output per slice
along --slice-axis.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMean(cmd, a, opts, args)
		},
	}

	cmd.Flags().IntSliceVarP(&opts.radii, "radius", "r", nil, "radius per dimension, or one radius for all (default from config)")
	cmd.Flags().StringSliceVarP(&opts.outputs, "output", "o", nil, "output file, one per slice")
	cmd.Flags().StringVar(&opts.format, "format", "auto", "output format: auto, jpeg, png, gif")
	cmd.Flags().IntVar(&opts.quality, "quality", 0, "JPEG quality (default from config)")
	cmd.Flags().StringVar(&opts.axis, "slice-axis", "z", "axis a 3-D result is sliced along: x, y or z")
	return cmd
}

func runMean(cmd *cobra.Command, a *app, opts *meanOptions, args []string) error {
	if len(opts.outputs) == 0 {
		return fmt.Errorf("%w: at least one --output is required", field.ErrInvalidArgument)
	}
	format, err := imaging.ParseFormat(opts.format)
	if err != nil {
		return fmt.Errorf("%w: %v", field.ErrInvalidArgument, err)
	}
	radii := opts.radii
	if len(radii) == 0 {
		radii = a.cfg.Filter.MeanRadius
	}

	zc := a.newContext("mean")
	defer zc.Close()
	fm := zc.DefaultRegion().Fieldmodule()

	img, err := readInputs(fm, args)
	if err != nil {
		return err
	}
	mean, err := fm.CreateFieldImagefilterMean(img, radii)
	if err != nil {
		return err
	}
	result, err := fm.CreateFieldImageFromSource(cmd.Context(), mean)
	if err != nil {
		return err
	}

	si := result.CreateStreaminformation()
	for _, path := range opts.outputs {
		si.CreateStreamresourceFile(path)
	}
	si.SetFileFormat(format)
	si.SetQuality(opts.quality)
	if err := si.SetSliceAxis(opts.axis); err != nil {
		return fmt.Errorf("%w: %w", field.ErrInvalidArgument, err)
	}
	if err := result.Write(si); err != nil {
		return err
	}

	rmse, err := imaging.RMSE(img.Buffer(), result.Buffer())
	if err != nil {
		return err
	}
	ssim, err := imaging.SSIM(img.Buffer(), result.Buffer())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Filtered %s image %v with radius %v\n", dimensionName(img), img.Sizes(), radii)
	fmt.Fprintf(out, "Root Mean Square Error (RMSE): %.6f\n", rmse)
	fmt.Fprintf(out, "Structural Similarity Index (SSIM): %.3f\n", ssim)
	for _, path := range opts.outputs {
		fmt.Fprintf(out, "Output saved to: %s\n", path)
	}
	return nil
}

// readInputs reads files and directories into a new image field.
func readInputs(fm *field.Module, paths []string) (*field.ImageField, error) {
	img, err := fm.CreateFieldImage()
	if err != nil {
		return nil, err
	}

	si := img.CreateStreaminformation()
	if err := addInputs(si, paths); err != nil {
		return nil, err
	}
	if err := img.Read(si); err != nil {
		return nil, err
	}
	return img, nil
}

func addInputs(si *stream.Information, paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			// missing files are reported by Read
			si.CreateStreamresourceFile(path)
			continue
		}
		n, err := si.AddDirectory(path)
		if err != nil {
			return fmt.Errorf("%w: %w", field.ErrRead, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: no images found in %s", field.ErrRead, path)
		}
	}
	return nil
}

func dimensionName(img *field.ImageField) string {
	return fmt.Sprintf("%d-D", img.Dimension())
}
