package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	qcbridge "github.com/wippyai/qcvm-bridge"
	"github.com/wippyai/qcvm-bridge/builtins"
	"github.com/wippyai/qcvm-bridge/config"
	"github.com/wippyai/qcvm-bridge/engine"
	"github.com/wippyai/qcvm-bridge/progs"
	"github.com/wippyai/qcvm-bridge/runtime"
	"github.com/wippyai/qcvm-bridge/trampoline"
)

// setFlags collects repeated -set name=value pairs.
type setFlags []string

func (s *setFlags) String() string     { return strings.Join(*s, ",") }
func (s *setFlags) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var (
		configFile   = flag.String("config", "", "Path to qcvm.toml (default: search upward from .)")
		manifestFile = flag.String("manifest", "", "Definitions manifest (overrides config)")
		wasmFile     = flag.String("wasm", "", "Guest module (overrides config)")
		lookup       = flag.String("lookup", "", "Show one global or field definition")
		entity       = flag.Int("ent", -1, "Entity whose fields -set targets")
		runFunc      = flag.String("run", "", "Run a guest function")
		snapshot     = flag.String("snapshot", "", "Write the string table snapshot to a file")
		list         = flag.Bool("list", false, "List definitions and builtins and exit")
		verbose      = flag.Bool("v", false, "Debug logging")
		interactive  = flag.Bool("i", false, "Interactive mode with TUI")
		sets         setFlags
	)
	flag.Var(&sets, "set", "Parse name=value into storage (repeatable)")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fail(err)
	}
	if *manifestFile != "" {
		cfg.Progs.Manifest = *manifestFile
	}
	if *wasmFile != "" {
		cfg.Guest.Module = *wasmFile
	}
	if *verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	if err := setupLogging(cfg); err != nil {
		fail(err)
	}

	if cfg.ManifestPath() == "" {
		fmt.Fprintln(os.Stderr, "Usage: qcdefs -manifest <defs.yaml> [-list] [-lookup name] [-set name=value ...] [-ent n]")
		fmt.Fprintln(os.Stderr, "       qcdefs -manifest <defs.yaml> -wasm <progs.wasm> -run <function>")
		fmt.Fprintln(os.Stderr, "       qcdefs -manifest <defs.yaml> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fail(fmt.Errorf("interactive mode needs a terminal"))
		}
		if err := runInteractive(cfg); err != nil {
			fail(err)
		}
		return
	}

	if err := run(cfg, *lookup, sets, progs.EntityRef(*entity), *runFunc, *snapshot, *list); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.FindAndLoad(".")
}

func setupLogging(cfg *config.Config) error {
	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	runtime.SetLogger(log)
	engine.SetLogger(log)
	builtins.SetLogger(log)
	trampoline.SetLogger(log)
	return nil
}

// session is a loaded instance plus whatever owns its storage.
type session struct {
	inst     *runtime.Instance
	rt       *runtime.Runtime
	host     *consoleHost
	manifest *progs.Manifest
}

func open(ctx context.Context, cfg *config.Config) (*session, error) {
	m, err := progs.LoadManifest(cfg.ManifestPath())
	if err != nil {
		return nil, err
	}
	h := newConsoleHost(os.Stdout)
	s := &session{host: h, manifest: m}

	if path := cfg.ModulePath(); path != "" {
		wasm, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read guest: %w", err)
		}
		s.rt, err = runtime.NewRuntime(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.inst, err = s.rt.Load(ctx, wasm, m, h)
		if err != nil {
			s.rt.Close(ctx)
			return nil, err
		}
		return s, nil
	}

	mem := qcbridge.NewSliceMemory(cfg.Layout().TotalSlots())
	s.inst, err = runtime.New(cfg, mem, h, runtime.WithManifest(m))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) close(ctx context.Context) {
	s.inst.Close(ctx)
	if s.rt != nil {
		s.rt.Close(ctx)
	}
}

func run(cfg *config.Config, lookup string, sets []string, ent progs.EntityRef, runFunc, snapshot string, listOnly bool) error {
	ctx := context.Background()

	s, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close(ctx)
	inst := s.inst

	fmt.Printf("Manifest: %s\n", cfg.ManifestPath())
	fmt.Printf("Globals: %d  Fields: %d  Builtins: %d\n",
		len(inst.Reflection().Globals()), len(inst.Reflection().Fields()), len(s.manifest.Builtins))
	count, longest := inst.Reflection().Buckets()
	fmt.Printf("Buckets: %d (longest %d)\n", count, longest)

	if listOnly {
		fmt.Printf("\nGlobals:\n")
		for _, def := range sortedDefs(inst.Reflection().Globals()) {
			fmt.Printf("  %s\n", formatDef(def))
		}
		fmt.Printf("\nFields:\n")
		for _, def := range sortedDefs(inst.Reflection().Fields()) {
			fmt.Printf("  %s\n", formatDef(def))
		}
		fmt.Printf("\nBuiltins:\n")
		for _, name := range s.manifest.BuiltinNames() {
			mark := ""
			if _, ok := inst.Registry().Get(name); !ok {
				mark = "  (unimplemented)"
			}
			fmt.Printf("  #%-4d %s%s\n", s.manifest.Builtins[name], name, mark)
		}
		return nil
	}

	if lookup != "" {
		def, space, ok := find(inst, lookup)
		if !ok {
			return fmt.Errorf("no definition named %q", lookup)
		}
		fmt.Printf("\n%s %s\n", space, formatDef(def))
	}

	if ent >= 0 && int32(ent) >= inst.Entities().Num() {
		if err := inst.Entities().SetNum(int32(ent) + 1); err != nil {
			return err
		}
	}
	for _, kv := range sets {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("-set %q: want name=value", kv)
		}
		shown, err := set(inst, name, value, ent)
		if err != nil {
			return fmt.Errorf("-set %s: %w", name, err)
		}
		fmt.Printf("%s = %s\n", name, shown)
	}

	if runFunc != "" {
		fmt.Printf("\nRunning %s()...\n", runFunc)
		if err := inst.RunNamed(ctx, runFunc); err != nil {
			return fmt.Errorf("run %s: %w", runFunc, err)
		}
		s.host.summary()
	}

	if snapshot != "" {
		data, err := inst.Strings().Snapshot()
		if err != nil {
			return err
		}
		if err := os.WriteFile(snapshot, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote %d strings to %s\n", inst.Strings().Len(), snapshot)
	}
	return nil
}

// find looks a name up as a global first, then as a field.
func find(inst *runtime.Instance, name string) (progs.Definition, string, bool) {
	if def, ok := inst.Reflection().Lookup(name); ok {
		return def, "global", true
	}
	if def, ok := inst.Reflection().LookupField(name); ok {
		return def, "field", true
	}
	return progs.Definition{}, "", false
}

// set parses value into a global, or into a field of ent when ent >= 0, and
// returns the stored value as text.
func set(inst *runtime.Instance, name, value string, ent progs.EntityRef) (string, error) {
	c := inst.Codec()
	var (
		def  progs.Definition
		addr uint32
		ok   bool
	)
	if ent >= 0 {
		def, ok = inst.Reflection().LookupField(name)
		addr = c.Field(ent, def.Offset)
	} else {
		def, ok = inst.Reflection().Lookup(name)
		addr = c.Global(def.Offset)
	}
	if !ok {
		return "", fmt.Errorf("no definition")
	}
	if err := inst.Parser().ParseInto(def, value, addr); err != nil {
		return "", err
	}
	return readValue(inst, def, addr)
}

func readValue(inst *runtime.Instance, def progs.Definition, addr uint32) (string, error) {
	v, err := inst.Codec().Read(addr, def.Type.Base())
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

func sortedDefs(defs []progs.Definition) []progs.Definition {
	out := append([]progs.Definition(nil), defs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

func formatDef(def progs.Definition) string {
	saved := ""
	if def.Type&progs.TypeGlobal != 0 {
		saved = " saved"
	}
	return fmt.Sprintf("%-24s %-8s @%-5d x%d%s", def.Name, def.Type.Base(), def.Offset, def.Slots(), saved)
}
