package runtime

import (
	"github.com/wippyai/qcvm-bridge/builtins"
	"github.com/wippyai/qcvm-bridge/progs"
)

// Installer adds builtins to an instance's registry.
type Installer func(r *builtins.Registry) error

type options struct {
	manifest   *progs.Manifest
	globals    []progs.Definition
	fields     []progs.Definition
	installers []Installer
	numbers    map[string]int32
}

// Option configures New.
type Option func(*options)

// WithManifest supplies definitions, builtin numbers and function names from
// a manifest. Explicit options given after it take precedence.
func WithManifest(m *progs.Manifest) Option {
	return func(o *options) {
		o.manifest = m
	}
}

// WithDefinitions supplies global and field definitions directly.
func WithDefinitions(globals, fields []progs.Definition) Option {
	return func(o *options) {
		o.globals = globals
		o.fields = fields
	}
}

// WithBuiltins installs extra builtins after the standard set.
func WithBuiltins(install ...Installer) Option {
	return func(o *options) {
		o.installers = append(o.installers, install...)
	}
}

// WithBuiltinNumbers binds builtin numbers at construction.
func WithBuiltinNumbers(numbers map[string]int32) Option {
	return func(o *options) {
		o.numbers = numbers
	}
}
