// Package fieldcontext provides the top-level handle of the library: a named
// Context owning a tree of regions, each with its own field module.
//
// A Context is released explicitly with Close, which destroys every region
// and invalidates every field created under it.
package fieldcontext

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"fieldkit/pkg/config"
	"fieldkit/pkg/field"
	"fieldkit/pkg/imaging"
)

// Context owns the default region and the settings shared by its field modules.
type Context struct {
	name string

	mu            sync.Mutex
	defaultRegion *Region
	closed        bool

	logger     *log.Logger
	metrics    *field.Metrics
	moduleOpts []field.Option
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used by the context and its field modules.
func WithLogger(logger *log.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegisterer registers field metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Context) {
		c.metrics = field.NewMetrics(reg)
	}
}

// WithConfig applies processing and image settings from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(c *Context) {
		if cfg == nil {
			return
		}
		c.moduleOpts = append(c.moduleOpts,
			field.WithWorkers(cfg.Processing.Workers),
			field.WithJPEGQuality(cfg.Image.JPEGQuality),
		)
		if format, err := imaging.ParseFormat(cfg.Image.Format); err == nil {
			c.moduleOpts = append(c.moduleOpts, field.WithWriteFormat(format))
		}
	}
}

// WithWorkers sets the number of goroutines used by filter evaluation.
func WithWorkers(n int) Option {
	return func(c *Context) {
		c.moduleOpts = append(c.moduleOpts, field.WithWorkers(n))
	}
}

// New creates a context with the given name and an empty default region.
func New(name string, opts ...Option) *Context {
	c := &Context{
		name:   name,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = field.NewMetrics(nil)
	}

	c.defaultRegion = c.newRegion("", nil)
	c.logger.Debug("context created", "name", name)
	return c
}

// Name returns the context name.
func (c *Context) Name() string { return c.name }

// Metrics returns the collectors shared by the context's field modules.
func (c *Context) Metrics() *field.Metrics { return c.metrics }

// DefaultRegion returns the root region. After Close the region is
// destroyed: its field module rejects every creation call.
func (c *Context) DefaultRegion() *Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultRegion
}

// Closed reports whether Close has been called.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close destroys the region tree. Fields created under the context become
// invalid. Close is idempotent.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	root := c.defaultRegion
	c.mu.Unlock()

	root.destroy()
	c.logger.Debug("context closed", "name", c.name)
	return nil
}

func (c *Context) newRegion(name string, parent *Region) *Region {
	path := name
	if parent != nil {
		path = parent.Path() + "/" + name
	}
	prefix := "region " + path
	if path == "" {
		prefix = "region /"
	}
	logger := c.logger.WithPrefix(prefix)

	opts := append([]field.Option{
		field.WithLogger(logger),
		field.WithMetrics(c.metrics),
	}, c.moduleOpts...)

	return &Region{
		name:     name,
		parent:   parent,
		context:  c,
		module:   field.NewModule(path, opts...),
		children: make(map[string]*Region),
	}
}

// Region is a node of the region tree. It owns one field module.
type Region struct {
	name    string
	parent  *Region
	context *Context
	module  *field.Module

	mu        sync.Mutex
	children  map[string]*Region
	order     []string
	destroyed bool
}

// Name returns the region name; the default region is unnamed.
func (r *Region) Name() string { return r.name }

// Path returns the slash-separated path from the default region.
func (r *Region) Path() string {
	if r.parent == nil {
		return ""
	}
	return r.parent.Path() + "/" + r.name
}

// Parent returns the parent region, nil for the default region.
func (r *Region) Parent() *Region { return r.parent }

// Fieldmodule returns the field module of the region, nil for a nil region.
func (r *Region) Fieldmodule() *field.Module {
	if r == nil {
		return nil
	}
	return r.module
}

// IsValid reports whether the region has not been destroyed.
func (r *Region) IsValid() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.destroyed
}

// CreateChild adds a child region with a unique, slash-free name.
func (r *Region) CreateChild(name string) (*Region, error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("region name %q: %w", name, field.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return nil, fmt.Errorf("region %q has been destroyed: %w", r.Path(), field.ErrInvalidArgument)
	}
	if _, taken := r.children[name]; taken {
		return nil, fmt.Errorf("region %q: %w", name, field.ErrAlreadyExists)
	}

	child := r.context.newRegion(name, r)
	r.children[name] = child
	r.order = append(r.order, name)
	return child, nil
}

// FindChild returns the child region called name.
func (r *Region) FindChild(name string) (*Region, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	child, ok := r.children[name]
	if !ok {
		return nil, fmt.Errorf("region %q: %w", name, field.ErrNotFound)
	}
	return child, nil
}

// Children returns the child regions in creation order.
func (r *Region) Children() []*Region {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Region, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.children[name])
	}
	return out
}

// destroy tears down children before the region itself.
func (r *Region) destroy() {
	for _, child := range r.Children() {
		child.destroy()
	}

	r.mu.Lock()
	r.destroyed = true
	r.children = make(map[string]*Region)
	r.order = nil
	r.mu.Unlock()

	r.module.Destroy()
}
