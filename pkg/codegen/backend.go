package codegen

import (
	"bytes"
	"fmt"

	"github.com/goforj/godump"
	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/ir"
)

// Backend turns a built program into its output form.
type Backend interface {
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
}

// NewBackend returns the backend registered under name: "listing" for the
// javap-like text form, "dump" for a structural dump of the program.
func NewBackend(name string) (Backend, error) {
	switch name {
	case "listing", "":
		return listingBackend{}, nil
	case "dump":
		return dumpBackend{}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

type listingBackend struct{}

func (listingBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	for _, c := range prog.Classes {
		for _, m := range c.Methods {
			if m.Code == nil {
				continue
			}
			if err := m.Code.Verify(); err != nil {
				return nil, fmt.Errorf("%s.%s: %w", c.Name, m.Desc.Name, err)
			}
		}
	}
	buf.WriteString(prog.Render())
	if cfg.Verbose {
		fmt.Fprintf(&buf, "\n// fingerprint %016x\n", prog.Fingerprint())
	}
	return &buf, nil
}

type dumpBackend struct{}

func (dumpBackend) Generate(prog *ir.Program, _ *config.Config) (*bytes.Buffer, error) {
	return bytes.NewBufferString(godump.DumpStr(prog)), nil
}
