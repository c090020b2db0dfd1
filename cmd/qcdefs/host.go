package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/qcvm-bridge/host/hosttest"
	"github.com/wippyai/qcvm-bridge/progs"
)

var printStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))

// consoleHost answers every host service with the recording fake and echoes
// script output to a writer.
type consoleHost struct {
	*hosttest.Fake
	out io.Writer
}

func newConsoleHost(out io.Writer) *consoleHost {
	return &consoleHost{Fake: hosttest.New(), out: out}
}

func (h *consoleHost) echo(prefix, msg string) {
	fmt.Fprint(h.out, printStyle.Render(prefix)+msg)
}

func (h *consoleHost) Bprintf(level int32, msg string) {
	h.Fake.Bprintf(level, msg)
	h.echo("[bprint] ", msg)
}

func (h *consoleHost) Dprintf(msg string) {
	h.Fake.Dprintf(msg)
	h.echo("[dprint] ", msg)
}

func (h *consoleHost) Cprintf(ent progs.EntityRef, level int32, msg string) {
	h.Fake.Cprintf(ent, level, msg)
	h.echo(fmt.Sprintf("[cprint %d] ", ent), msg)
}

func (h *consoleHost) Centerprintf(ent progs.EntityRef, msg string) {
	h.Fake.Centerprintf(ent, msg)
	h.echo(fmt.Sprintf("[center %d] ", ent), msg+"\n")
}

func (h *consoleHost) Error(msg string) {
	h.Fake.Error(msg)
	h.echo("[error] ", msg+"\n")
}

// summary prints how often each host service was called.
func (h *consoleHost) summary() {
	counts := make(map[string]int)
	for _, c := range h.Calls {
		counts[c.Name]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(h.out, "\nHost calls:\n")
	for _, name := range names {
		fmt.Fprintf(h.out, "  %-20s %d\n", name, counts[name])
	}
}
