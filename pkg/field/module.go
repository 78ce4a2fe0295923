package field

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"fieldkit/pkg/imaging"
)

// Module owns the fields of one region. Fields are registered under unique
// names; destroying the module invalidates all of them.
type Module struct {
	mu         sync.Mutex
	regionName string
	fields     []Field
	byName     map[string]Field
	nextTemp   int
	destroyed  bool

	logger      *log.Logger
	metrics     *Metrics
	workers     int
	jpegQuality int
	format      imaging.Format
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *log.Logger) Option {
	return func(m *Module) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Module) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// WithWorkers sets the number of goroutines used by filter evaluation.
func WithWorkers(n int) Option {
	return func(m *Module) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithJPEGQuality sets the quality used when writing JPEG resources that do
// not set their own.
func WithJPEGQuality(q int) Option {
	return func(m *Module) {
		if q > 0 && q <= 100 {
			m.jpegQuality = q
		}
	}
}

// WithWriteFormat sets the format used when writing resources whose format
// cannot be derived from the stream information or resource name.
func WithWriteFormat(f imaging.Format) Option {
	return func(m *Module) {
		m.format = f
	}
}

// NewModule creates a module for the named region.
func NewModule(regionName string, opts ...Option) *Module {
	m := &Module{
		regionName:  regionName,
		byName:      make(map[string]Field),
		logger:      log.New(io.Discard),
		workers:     runtime.NumCPU(),
		jpegQuality: imaging.DefaultJPEGQuality,
		format:      imaging.FormatAuto,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}
	return m
}

// RegionName returns the name of the owning region.
func (m *Module) RegionName() string { return m.regionName }

// IsValid reports whether the module has not been destroyed.
func (m *Module) IsValid() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.destroyed
}

// Destroy invalidates the module and every field it owns. It is called when
// the owning region is destroyed and is safe to call more than once.
func (m *Module) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.logger.Debug("field module destroyed", "region", m.regionName, "fields", len(m.fields))
	m.fields = nil
	m.byName = make(map[string]Field)
}

// Fields returns the fields of the module in creation order.
func (m *Module) Fields() []Field {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.fields)
}

// FindFieldByName returns the field called name.
func (m *Module) FindFieldByName(name string) (Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.byName[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("field %q: %w", name, ErrNotFound)
}

// CreateFieldImage creates a new, empty image field.
func (m *Module) CreateFieldImage() (*ImageField, error) {
	const op = "CreateFieldImage"
	if !m.IsValid() {
		return nil, invalidArgument(op, "field module has been destroyed")
	}

	f := &ImageField{}
	if err := m.register(f, &f.fieldCore, "image"); err != nil {
		return nil, err
	}
	return f, nil
}

// CreateFieldImagefilterMean creates a field that averages source over a
// window of 2*r+1 pixels per dimension.
//
// The source must be a populated image field (or a filter over one) owned by
// this module. radiusSizes holds one positive radius per image dimension; a
// single value applies to every dimension.
func (m *Module) CreateFieldImagefilterMean(source Field, radiusSizes []int) (*ImagefilterMeanField, error) {
	const op = "CreateFieldImagefilterMean"
	src, err := m.imageSourceArg(op, "source", source)
	if err != nil {
		return nil, err
	}
	if !src.Populated() {
		return nil, invalidArgument(op, "source field %q has no pixel data", src.Name())
	}
	if _, err := expandRadii(radiusSizes, src.Dimension()); err != nil {
		return nil, invalidArgument(op, "%v", err)
	}

	f := &ImagefilterMeanField{radii: slices.Clone(radiusSizes)}
	f.sources = []Field{src}
	if err := m.register(f, &f.fieldCore, "imagefilter_mean"); err != nil {
		return nil, err
	}
	return f, nil
}

// CreateFieldImageFromSource evaluates source and stores the result in a new
// populated image field, for example so that filter output can be written.
func (m *Module) CreateFieldImageFromSource(ctx context.Context, source Field) (*ImageField, error) {
	const op = "CreateFieldImageFromSource"
	src, err := m.imageSourceArg(op, "source", source)
	if err != nil {
		return nil, err
	}

	buf, err := src.evaluateImage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f := &ImageField{buffer: buf.Clone()}
	f.sources = []Field{src}
	if err := m.register(f, &f.fieldCore, "image"); err != nil {
		return nil, err
	}
	return f, nil
}

// imageSourceArg checks that f can serve as the image input of a new field.
func (m *Module) imageSourceArg(op, arg string, f Field) (ImageSource, error) {
	if !m.IsValid() {
		return nil, invalidArgument(op, "field module has been destroyed")
	}
	if isNil(f) {
		return nil, &UsageError{Op: op, Arg: arg, Want: "a field", Got: f}
	}
	src, ok := f.(ImageSource)
	if !ok {
		return nil, &UsageError{Op: op, Arg: arg, Want: "an image field", Got: f}
	}
	if !src.IsValid() {
		return nil, invalidArgument(op, "%s is not a valid field", arg)
	}
	if src.Module() != m {
		return nil, invalidArgument(op, "%s belongs to a different field module", arg)
	}
	return src, nil
}

// register names f and adds it to the module.
func (m *Module) register(f Field, c *fieldCore, typeName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return invalidArgument("register", "field module has been destroyed")
	}

	c.module = m
	c.typeName = typeName
	c.name = m.tempNameLocked()
	m.fields = append(m.fields, f)
	m.byName[c.name] = f

	m.metrics.FieldsCreated.WithLabelValues(typeName).Inc()
	m.logger.Debug("field created", "name", c.name, "type", typeName, "region", m.regionName)
	return nil
}

// tempNameLocked returns the next unused name of the form temp<N>.
func (m *Module) tempNameLocked() string {
	for {
		m.nextTemp++
		name := fmt.Sprintf("temp%d", m.nextTemp)
		if _, taken := m.byName[name]; !taken {
			return name
		}
	}
}

func (m *Module) rename(c *fieldCore, name string) error {
	const op = "SetName"
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return invalidArgument(op, "field module has been destroyed")
	}
	if strings.TrimSpace(name) == "" {
		return invalidArgument(op, "field name must not be empty")
	}
	if name == c.name {
		return nil
	}
	if _, taken := m.byName[name]; taken {
		return fmt.Errorf("%s: field %q: %w", op, name, ErrAlreadyExists)
	}

	f := m.byName[c.name]
	delete(m.byName, c.name)
	c.name = name
	m.byName[name] = f
	return nil
}
