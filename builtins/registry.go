package builtins

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/progs"
)

// Func implements a builtin. Arguments are read from and results written to
// the frame; a returned error aborts the calling script.
type Func func(ctx context.Context, f *Frame) error

// Builtin is a native function callable from progs.
type Builtin struct {
	Fn   Func
	Name string
	// Params declares the types of the leading arguments. Accessors for
	// these indices check the declared type; later arguments are unchecked.
	Params []progs.Type
}

// Registry maps builtin names to implementations and, once bound, progs
// builtin numbers to builtins.
type Registry struct {
	byName map[string]*Builtin
	byNum  map[int32]*Builtin
	mu     sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Builtin),
		byNum:  make(map[int32]*Builtin),
	}
}

// Register adds a builtin. Names must be unique.
func (r *Registry) Register(b Builtin) error {
	if b.Name == "" {
		return errors.InvalidInput(errors.PhaseHost, "builtin name cannot be empty")
	}
	if b.Fn == nil {
		return errors.Registration(b.Name, fmt.Errorf("nil implementation"))
	}
	if len(b.Params) > progs.MaxParms {
		return errors.Registration(b.Name, fmt.Errorf("%d params exceed %d", len(b.Params), progs.MaxParms))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[b.Name]; ok {
		return errors.Registration(b.Name, fmt.Errorf("already registered"))
	}
	r.byName[b.Name] = &b
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(b Builtin) {
	if err := r.Register(b); err != nil {
		panic(err)
	}
}

func (r *Registry) registerAll(list []Builtin) error {
	for _, b := range list {
		if err := r.Register(b); err != nil {
			return err
		}
	}
	return nil
}

// Bind assigns progs builtin numbers by name. Every name the progs declare
// must be registered; the missing ones are reported together.
func (r *Registry) Bind(numbers map[string]int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	missing := make(map[string]int32)
	byNum := make(map[int32]*Builtin, len(numbers))

	for name, num := range numbers {
		b, ok := r.byName[name]
		if !ok {
			missing[name] = num
			continue
		}
		if prev, dup := byNum[num]; dup {
			return errors.Registration(name, fmt.Errorf("builtin #%d already bound to %s", num, prev.Name))
		}
		byNum[num] = b
	}

	if len(missing) > 0 {
		return errors.NewMissingBuiltinsError(missing)
	}

	r.byNum = byNum
	Logger().Debug("builtins bound",
		zap.Int("bound", len(byNum)),
		zap.Int("registered", len(r.byName)))
	return nil
}

// Lookup returns the builtin bound to num.
func (r *Registry) Lookup(num int32) (*Builtin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byNum[num]
	return b, ok
}

// Get returns the builtin registered under name.
func (r *Registry) Get(name string) (*Builtin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byName[name]
	return b, ok
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs builtin num with argc arguments already in the parameter slots.
func (r *Registry) Call(ctx context.Context, env *Env, num int32, argc int) error {
	b, ok := r.Lookup(num)
	if !ok {
		return errors.New(errors.PhaseBuiltin, errors.KindNotFound).
			Value(num).
			Detail("builtin #%d is not bound", num).
			Build()
	}
	if argc < 0 || argc > progs.MaxParms {
		return errors.OutOfRange(errors.PhaseBuiltin, []string{b.Name, "argc"}, argc, progs.MaxParms+1)
	}

	err := b.Fn(ctx, newFrame(env, b, argc))
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.Error); ok {
		return err
	}
	return errors.New(errors.PhaseBuiltin, errors.KindInvalidInput).
		Path(b.Name).
		Cause(err).
		Build()
}

const (
	tString  = progs.TypeString
	tFloat   = progs.TypeFloat
	tVector  = progs.TypeVector
	tEntity  = progs.TypeEntity
	tFunc    = progs.TypeFunction
	tPointer = progs.TypePointer
	tInt     = progs.TypeInteger
)

func params(ts ...progs.Type) []progs.Type {
	return ts
}
