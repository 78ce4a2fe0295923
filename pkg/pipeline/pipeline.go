// Package pipeline runs field graphs described in YAML documents.
//
// A document lists fields in creation order. Each field names its type as
// accepted by field.Module.CreateField, an optional source field and, for
// image fields, the resources to read. Outputs name fields to write.
//
//	context: smoothing
//	fields:
//	  - name: scan
//	    type: image
//	    read:
//	      files: [slice_0.png, slice_1.png]
//	  - name: smooth
//	    type: imagefilter_mean
//	    source: scan
//	    radius: [2, 2, 1]
//	outputs:
//	  - field: smooth
//	    files: [out_0.png, out_1.png]
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"fieldkit/pkg/field"
	"fieldkit/pkg/fieldcontext"
	"fieldkit/pkg/imaging"
	"fieldkit/pkg/stream"
)

// Pipeline is a decoded pipeline document.
type Pipeline struct {
	Context string      `yaml:"context"`
	Fields  []FieldSpec `yaml:"fields"`
	Outputs []Output    `yaml:"outputs"`

	// BaseDir resolves relative paths. Load sets it to the document's directory.
	BaseDir string `yaml:"-"`
}

// FieldSpec describes one field to create.
type FieldSpec struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Source string `yaml:"source,omitempty"`
	// Radius is passed through untyped: an integer or a list of integers.
	Radius any   `yaml:"radius,omitempty"`
	Read   *Read `yaml:"read,omitempty"`
}

// Read lists the resources an image field is read from.
type Read struct {
	Files     []string `yaml:"files,omitempty"`
	Directory string   `yaml:"directory,omitempty"`
	Format    string   `yaml:"format,omitempty"`
}

// Output writes a field to files.
type Output struct {
	Field   string   `yaml:"field"`
	Files   []string `yaml:"files"`
	Format  string   `yaml:"format,omitempty"`
	Quality int      `yaml:"quality,omitempty"`
	// Axis is the axis a 3-D field is sliced along, one file per slice.
	Axis string `yaml:"axis,omitempty"`
}

// Load reads a pipeline document from path.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	p.BaseDir = filepath.Dir(path)
	return p, nil
}

// Parse decodes and validates a pipeline document.
func Parse(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the document structure. Field argument types are left to
// CreateField.
func (p *Pipeline) Validate() error {
	if len(p.Fields) == 0 {
		return fmt.Errorf("pipeline defines no fields")
	}

	seen := make(map[string]bool)
	for i, f := range p.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %q: defined twice", f.Name)
		}
		if f.Source != "" && !seen[f.Source] {
			return fmt.Errorf("field %q: source %q is not defined before it", f.Name, f.Source)
		}
		if f.Read != nil {
			if f.Type != "image" {
				return fmt.Errorf("field %q: only image fields can be read", f.Name)
			}
			if len(f.Read.Files) == 0 && f.Read.Directory == "" {
				return fmt.Errorf("field %q: read needs files or a directory", f.Name)
			}
			if _, err := imaging.ParseFormat(f.Read.Format); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
		seen[f.Name] = true
	}

	for i, o := range p.Outputs {
		if !seen[o.Field] {
			return fmt.Errorf("output %d: unknown field %q", i, o.Field)
		}
		if len(o.Files) == 0 {
			return fmt.Errorf("output %d: no files", i)
		}
		if _, err := imaging.ParseFormat(o.Format); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
		if _, err := stream.ParseSliceAxis(o.Axis); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}
	return nil
}

// Runner executes pipelines in a region.
type Runner struct {
	region *fieldcontext.Region
	logger *log.Logger
}

// NewRunner creates a runner that creates its fields in region.
func NewRunner(region *fieldcontext.Region, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{region: region, logger: logger}
}

// Run creates every field in order, reads image fields and writes the
// outputs. Filter fields named as outputs are evaluated into a new image
// field first.
func (r *Runner) Run(ctx context.Context, p *Pipeline) error {
	fm := r.region.Fieldmodule()

	for _, spec := range p.Fields {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := r.createField(ctx, fm, spec)
		if err != nil {
			return fmt.Errorf("field %q: %w", spec.Name, err)
		}
		if err := f.SetName(spec.Name); err != nil {
			return fmt.Errorf("field %q: %w", spec.Name, err)
		}
		if spec.Read != nil {
			if err := r.read(f, spec.Read, p.BaseDir); err != nil {
				return fmt.Errorf("field %q: %w", spec.Name, err)
			}
		}
		r.logger.Info("field created", "name", spec.Name, "type", spec.Type)
	}

	for _, out := range p.Outputs {
		if err := r.write(ctx, fm, out, p.BaseDir); err != nil {
			return fmt.Errorf("output %q: %w", out.Field, err)
		}
		r.logger.Info("output written", "field", out.Field, "files", len(out.Files))
	}
	return nil
}

func (r *Runner) createField(ctx context.Context, fm *field.Module, spec FieldSpec) (field.Field, error) {
	var args []any
	if spec.Source != "" {
		source, err := fm.FindFieldByName(spec.Source)
		if err != nil {
			return nil, err
		}
		args = append(args, source)
	}
	if spec.Radius != nil {
		args = append(args, spec.Radius)
	}
	return fm.CreateField(ctx, spec.Type, args...)
}

func (r *Runner) read(f field.Field, spec *Read, baseDir string) error {
	img, ok := f.(*field.ImageField)
	if !ok {
		return fmt.Errorf("%w: %s cannot be read", field.ErrInvalidArgument, f.Name())
	}

	si := img.CreateStreaminformation()
	for _, name := range spec.Files {
		si.CreateStreamresourceFile(resolve(baseDir, name))
	}
	if spec.Directory != "" {
		if _, err := si.AddDirectory(resolve(baseDir, spec.Directory)); err != nil {
			return err
		}
	}
	format, _ := imaging.ParseFormat(spec.Format)
	si.SetFileFormat(format)
	return img.Read(si)
}

func (r *Runner) write(ctx context.Context, fm *field.Module, out Output, baseDir string) error {
	f, err := fm.FindFieldByName(out.Field)
	if err != nil {
		return err
	}

	img, ok := f.(*field.ImageField)
	if !ok {
		if img, err = fm.CreateFieldImageFromSource(ctx, f); err != nil {
			return err
		}
	}

	si := img.CreateStreaminformation()
	for _, name := range out.Files {
		si.CreateStreamresourceFile(resolve(baseDir, name))
	}
	format, _ := imaging.ParseFormat(out.Format)
	si.SetFileFormat(format)
	si.SetQuality(out.Quality)
	if err := si.SetSliceAxis(out.Axis); err != nil {
		return err
	}
	return img.Write(si)
}

func resolve(baseDir, path string) string {
	if baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
