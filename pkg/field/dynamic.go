package field

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// constructor builds a field from loosely typed arguments.
type constructor func(ctx context.Context, m *Module, args []any) (Field, error)

var constructors = map[string]constructor{
	"image":             createImage,
	"imagefilter_mean":  createImagefilterMean,
	"image_from_source": createImageFromSource,
}

// FieldTypes returns the type names accepted by CreateField.
func FieldTypes() []string {
	return slices.Sorted(maps.Keys(constructors))
}

// CreateField creates a field of the named type from loosely typed
// arguments, as supplied by scripts or configuration files:
//
//	image
//	imagefilter_mean   source Field, radius sizes ([]int, int or []any of ints)
//	image_from_source  source Field
//
// Arguments of the wrong kind are rejected with a *UsageError before any
// image data is touched.
func (m *Module) CreateField(ctx context.Context, typeName string, args ...any) (Field, error) {
	create, ok := constructors[typeName]
	if !ok {
		return nil, fmt.Errorf("field type %q: %w", typeName, ErrNotFound)
	}
	return create(ctx, m, args)
}

func createImage(_ context.Context, m *Module, args []any) (Field, error) {
	const op = "CreateFieldImage"
	if len(args) != 0 {
		return nil, &UsageError{Op: op, Arg: "arguments", Want: "no arguments", Got: args}
	}
	f, err := m.CreateFieldImage()
	if err != nil {
		return nil, err
	}
	return f, nil
}

func createImagefilterMean(_ context.Context, m *Module, args []any) (Field, error) {
	const op = "CreateFieldImagefilterMean"
	source, err := fieldArg(op, "source", args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) != 2 {
		return nil, &UsageError{Op: op, Arg: "radiusSizes", Want: "a radius sequence", Got: nil}
	}
	radii, err := intsArg(op, "radiusSizes", args[1])
	if err != nil {
		return nil, err
	}

	f, err := m.CreateFieldImagefilterMean(source, radii)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func createImageFromSource(ctx context.Context, m *Module, args []any) (Field, error) {
	const op = "CreateFieldImageFromSource"
	source, err := fieldArg(op, "source", args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, &UsageError{Op: op, Arg: "arguments", Want: "a single source field", Got: args}
	}

	f, err := m.CreateFieldImageFromSource(ctx, source)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func fieldArg(op, name string, args []any, i int) (Field, error) {
	if i >= len(args) {
		return nil, &UsageError{Op: op, Arg: name, Want: "a field", Got: nil}
	}
	f, ok := args[i].(Field)
	if !ok || isNil(f) {
		return nil, &UsageError{Op: op, Arg: name, Want: "a field", Got: args[i]}
	}
	return f, nil
}

func intsArg(op, name string, v any) ([]int, error) {
	switch t := v.(type) {
	case int:
		return []int{t}, nil
	case []int:
		return slices.Clone(t), nil
	case []any:
		out := make([]int, len(t))
		for i, e := range t {
			n, ok := e.(int)
			if !ok {
				return nil, &UsageError{Op: op, Arg: fmt.Sprintf("%s[%d]", name, i), Want: "an integer", Got: e}
			}
			out[i] = n
		}
		return out, nil
	}
	return nil, &UsageError{Op: op, Arg: name, Want: "a sequence of integers", Got: v}
}
