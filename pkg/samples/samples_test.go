package samples

import (
	"bytes"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/gizmo/pkg/codegen"
	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/vm"
)

var want = map[string]any{
	"demo/Fib":     int32(6765),
	"demo/Words":   int32(3),
	"demo/Planets": int32(2),
	"demo/SafeDiv": int32(-1),
	"demo/Grades":  int32('B'),
	"demo/Counter": int32(42),
}

func run(t *testing.T, cfg *config.Config) *vm.VM {
	var diag bytes.Buffer
	cfg.Diagnostics = &diag
	g := codegen.New(cfg)
	be.Err(t, Build(g, All()), nil)

	m := vm.New(g.Program())
	for _, s := range All() {
		if s.Setup != nil {
			s.Setup(m)
		}
	}
	for _, s := range All() {
		t.Run(s.Class, func(t *testing.T) {
			got, err := m.Invoke(s.Class, s.Entry, s.Args(m)...)
			be.Err(t, err, nil)
			be.Equal(t, got, want[s.Class])
		})
	}
	return m
}

func TestSamples(t *testing.T) {
	m := run(t, config.NewConfig())
	calls, err := m.Invoke("demo/SafeDiv", "calls")
	be.Err(t, err, nil)
	be.Equal(t, calls, any(int32(1)))
}

func TestSamplesWithOrdinalsAndNoTables(t *testing.T) {
	cfg := config.NewConfig()
	be.Err(t, cfg.ProcessFlags([]string{"-Fenum-ordinal", "-Fno-table-switch", "-Fno-local-var-table"}), nil)
	run(t, cfg)
}

func TestFind(t *testing.T) {
	s, ok := Find("demo/Fib")
	be.True(t, ok)
	be.Equal(t, s.Entry, "fib")
	_, ok = Find("demo/Nope")
	be.Equal(t, ok, false)
}
