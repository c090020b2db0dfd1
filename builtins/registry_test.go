package builtins

import (
	"context"
	"errors"
	"strings"
	"testing"

	qcerrors "github.com/wippyai/qcvm-bridge/errors"
	"github.com/wippyai/qcvm-bridge/progs"
)

func nop(context.Context, *Frame) error { return nil }

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(Builtin{Name: "a", Fn: nop}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name string
		b    Builtin
		kind qcerrors.Kind
	}{
		{"empty name", Builtin{Fn: nop}, qcerrors.KindInvalidInput},
		{"nil fn", Builtin{Name: "b"}, qcerrors.KindRegistration},
		{"duplicate", Builtin{Name: "a", Fn: nop}, qcerrors.KindRegistration},
		{"too many params", Builtin{Name: "c", Fn: nop, Params: make([]progs.Type, progs.MaxParms+1)}, qcerrors.KindRegistration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.b)
			if qcerrors.KindOf(err) != tt.kind {
				t.Errorf("got %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Builtin{Name: "a", Fn: nop})
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate")
		}
	}()
	r.MustRegister(Builtin{Name: "a", Fn: nop})
}

func TestRegistry_BindMissing(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Builtin{Name: "known", Fn: nop})

	err := r.Bind(map[string]int32{"known": 1, "sound": 5, "Pmove": 9})
	var missing *qcerrors.MissingBuiltinsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingBuiltinsError, got %v", err)
	}
	if len(missing.Builtins) != 2 {
		t.Fatalf("missing = %+v", missing.Builtins)
	}
	if missing.Builtins[0].Name != "sound" || missing.Builtins[1].Name != "Pmove" {
		t.Errorf("missing not sorted by number: %+v", missing.Builtins)
	}
	if !strings.Contains(err.Error(), "#5 sound") {
		t.Errorf("message = %q", err.Error())
	}
	if _, ok := r.Lookup(1); ok {
		t.Error("failed Bind must not install numbers")
	}
}

func TestRegistry_BindDuplicateNumber(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Builtin{Name: "a", Fn: nop})
	r.MustRegister(Builtin{Name: "b", Fn: nop})
	err := r.Bind(map[string]int32{"a": 3, "b": 3})
	if qcerrors.KindOf(err) != qcerrors.KindRegistration {
		t.Errorf("got %v", err)
	}
}

func TestRegistry_CallUnbound(t *testing.T) {
	h := newHarness(t)
	err := h.reg.Call(context.Background(), h.env, 9999, 0)
	if qcerrors.KindOf(err) != qcerrors.KindNotFound || !qcerrors.IsFatal(err) {
		t.Errorf("got %v, want fatal not_found", err)
	}
}

func TestRegistry_CallWrapsPlainErrors(t *testing.T) {
	h := newHarness(t, Builtin{Name: "fails", Fn: func(context.Context, *Frame) error {
		return errors.New("boom")
	}})
	err := h.call("fails")
	var qe *qcerrors.Error
	if !errors.As(err, &qe) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if qe.Phase != qcerrors.PhaseBuiltin || len(qe.Path) == 0 || qe.Path[0] != "fails" {
		t.Errorf("unexpected wrap: %+v", qe)
	}
	if qe.Unwrap() == nil || qe.Unwrap().Error() != "boom" {
		t.Errorf("cause lost: %v", qe.Unwrap())
	}
}

func TestInstall_NamesUnique(t *testing.T) {
	r := NewRegistry()
	for _, install := range []func(*Registry) error{InstallGame, InstallVector, InstallGI} {
		if err := install(r); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{
		"SetNumEdicts", "ClearEntity", "SyncPlayerState", "entity_key_parse", "struct_key_parse",
		"itoe", "etoi", "AngleVectors", "VectorNormalize", "vectoangles", "CrossProduct",
		"VectorLength", "AddPointToBounds", "bprintf", "dprintf", "cprintf", "centerprintf",
		"sound", "positioned_sound", "cvar", "cvar_set", "cvar_forceset", "configstring",
		"error", "modelindex", "soundindex", "imageindex", "setmodel", "trace", "trace_result",
		"pointcontents", "inPVS", "inPHS", "SetAreaPortalState", "AreasConnected", "linkentity",
		"unlinkentity", "BoxEdicts", "FreeBoxEdicts", "multicast", "unicast", "WriteChar",
		"WriteByte", "WriteShort", "WriteLong", "WriteFloat", "WriteString", "WritePosition",
		"WriteDir", "WriteAngle", "argv", "argc", "args", "box_edicts_length", "box_edicts_get",
		"csurface_get_name", "csurface_get_flags", "csurface_get_value", "cvar_get_name",
		"cvar_get_string", "cvar_get_latched_string", "cvar_get_modified", "cvar_set_modified",
		"cvar_get_floatVal", "cvar_get_intVal",
	}
	for _, name := range want {
		if _, ok := r.Get(name); !ok {
			t.Errorf("builtin %s not installed", name)
		}
	}
}
