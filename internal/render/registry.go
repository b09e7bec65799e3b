package render

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// ErrUnknownRenderer is returned when a named renderer is not registered.
var ErrUnknownRenderer = errors.New("render: unknown renderer")

// DefaultName is the renderer used for columns without a renderer.
const DefaultName = "text"

type refKind int

const (
	refDefault refKind = iota
	refNamed
	refInstance
)

// Ref selects a column's renderer: either a registry name or a renderer
// instance. The zero Ref selects the default text renderer.
type Ref struct {
	kind     refKind
	name     string
	instance Renderer
}

// Named refers to a renderer registered under name.
func Named(name string) Ref { return Ref{kind: refNamed, name: name} }

// Instance refers to a renderer value directly.
func Instance(r Renderer) Ref { return Ref{kind: refInstance, instance: r} }

// IsZero reports whether the ref selects the default renderer.
func (r Ref) IsZero() bool { return r.kind == refDefault }

// Name returns the registry name of a named ref, or "" otherwise.
func (r Ref) Name() string {
	if r.kind != refNamed {
		return ""
	}
	return r.name
}

func (r Ref) String() string {
	switch r.kind {
	case refNamed:
		return "named:" + r.name
	case refInstance:
		return "instance:" + instanceIdentity(r.instance)
	default:
		return "default"
	}
}

// Resolved is a renderer together with the identity used to detect renderer
// changes and to key cached content.
type Resolved struct {
	Renderer Renderer
	Identity string
}

// Registry maps names to renderers.
type Registry struct {
	byName map[string]Renderer
}

// NewRegistry creates a registry holding the default text renderer.
func NewRegistry() *Registry {
	return &Registry{
		byName: map[string]Renderer{DefaultName: Text{}},
	}
}

// NewDefaultRegistry creates a registry with every built-in renderer.
func NewDefaultRegistry(opts MarkdownOptions) *Registry {
	r := NewRegistry()
	r.MustRegister("wrap", Wrap{})
	r.MustRegister("number", Number{Precision: -1})
	r.MustRegister("badge", Badge{})
	r.MustRegister("markdown", NewMarkdown(opts))
	return r
}

// Register adds or replaces a named renderer.
func (r *Registry) Register(name string, renderer Renderer) error {
	if name == "" {
		return errors.New("render: renderer name is empty")
	}
	if renderer == nil {
		return fmt.Errorf("render: renderer %q is nil", name)
	}
	r.byName[name] = renderer
	return nil
}

// MustRegister is Register for static setup; it panics on error.
func (r *Registry) MustRegister(name string, renderer Renderer) {
	if err := r.Register(name, renderer); err != nil {
		panic(err)
	}
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the renderer a ref selects.
func (r *Registry) Resolve(ref Ref) (Resolved, error) {
	switch ref.kind {
	case refNamed:
		renderer, ok := r.byName[ref.name]
		if !ok {
			return Resolved{}, fmt.Errorf("%w: %q", ErrUnknownRenderer, ref.name)
		}
		return Resolved{Renderer: renderer, Identity: "named:" + ref.name}, nil
	case refInstance:
		if ref.instance == nil {
			return Resolved{}, fmt.Errorf("%w: nil instance", ErrUnknownRenderer)
		}
		return Resolved{Renderer: ref.instance, Identity: "instance:" + instanceIdentity(ref.instance)}, nil
	default:
		return Resolved{Renderer: r.byName[DefaultName], Identity: "named:" + DefaultName}, nil
	}
}

// instanceIdentity distinguishes renderer instances. Pointer and func
// renderers are identified by address, value renderers by type and fields.
func instanceIdentity(r Renderer) string {
	if id, ok := r.(Identifier); ok {
		return id.Identity()
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func:
		return fmt.Sprintf("%T@%x", r, v.Pointer())
	default:
		return fmt.Sprintf("%T%+v", r, r)
	}
}
