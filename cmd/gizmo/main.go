package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goforj/godump"
	"github.com/xplshn/gizmo/pkg/cli"
	"github.com/xplshn/gizmo/pkg/codegen"
	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/samples"
	"github.com/xplshn/gizmo/pkg/util"
	"github.com/xplshn/gizmo/pkg/vm"
)

type options struct {
	backend     string
	output      string
	classes     []string
	fingerprint bool
	dumpGraph   bool
	run         bool
	check       string
	update      bool
	jobs        int
	density     float64
	verbose     bool
}

func main() {
	app := cli.NewApp("gizmo")
	app.Synopsis = "[options] [class ...]"
	app.Description = "Builds the bundled sample classes through the expression graph compiler and prints their instruction listings. Classes may be selected by internal name, e.g. demo/Fib."
	app.Authors = []string{"xplshn"}
	app.Repository = "https://github.com/xplshn/gizmo"

	var opt options
	fs := app.FlagSet
	fs.String(&opt.backend, "backend", "b", "listing", "Output format: listing or dump.", "name")
	fs.String(&opt.output, "output", "o", "-", "Write the output to <file>.", "file")
	fs.List(&opt.classes, "class", "c", []string{}, "Build only the named sample class.", "class")
	fs.Bool(&opt.fingerprint, "fingerprint", "", false, "Print the program fingerprint instead of the listing.")
	fs.Bool(&opt.dumpGraph, "dump-graph", "g", false, "Dump the expression graph of every method.")
	fs.Bool(&opt.run, "run", "r", false, "Execute each sample's entry point and print the result.")
	fs.String(&opt.check, "check", "", "", "Compare listings against the golden files in <dir>.", "dir")
	fs.Bool(&opt.update, "update", "u", false, "With --check, rewrite the golden files.")
	fs.Int(&opt.jobs, "jobs", "j", 4, "Number of parallel golden checks.")
	fs.Float(&opt.density, "switch-density", "", 0.5, "Minimum case density for jump-table switches.")
	fs.Bool(&opt.verbose, "verbose", "v", false, "Print informational messages.")

	cfg := config.NewConfig()
	applyFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(args []string) error {
		if err := applyFlags(); err != nil {
			util.Report(cfg, err)
			return err
		}
		if err := cfg.SetSwitchDensity(opt.density); err != nil {
			util.Report(cfg, err)
			return err
		}
		cfg.Verbose = opt.verbose
		opt.classes = append(opt.classes, args...)
		if err := run(cfg, opt, app.Stdout); err != nil {
			util.Report(cfg, err)
			return err
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func selectSamples(names []string) ([]samples.Sample, error) {
	if len(names) == 0 {
		return samples.All(), nil
	}
	var out []samples.Sample
	for _, n := range names {
		s, ok := samples.Find(n)
		if !ok {
			return nil, fmt.Errorf("no sample class %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

func run(cfg *config.Config, opt options, stdout io.Writer) error {
	ss, err := selectSamples(opt.classes)
	if err != nil {
		return err
	}
	if opt.check != "" {
		return checkGolden(cfg, ss, opt.check, opt.update, opt.jobs, stdout)
	}

	out := stdout
	if opt.output != "" && opt.output != "-" {
		f, err := os.Create(opt.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	g := codegen.New(cfg)
	if opt.dumpGraph {
		g.OnMethod = func(s codegen.GraphSnapshot) {
			fmt.Fprintf(out, "// graph of %s.%s\n%s\n", s.Class, s.Method, godump.DumpStr(s))
		}
	}
	if err := samples.Build(g, ss); err != nil {
		return err
	}
	util.Info(cfg, "built %d sample classes", len(ss))

	switch {
	case opt.run:
		return execute(g, ss, out)
	case opt.fingerprint:
		fmt.Fprintf(out, "%016x\n", g.Program().Fingerprint())
		return nil
	case opt.dumpGraph:
		return nil
	}

	backend, err := codegen.NewBackend(opt.backend)
	if err != nil {
		return err
	}
	buf, err := backend.Generate(g.Program(), cfg)
	if err != nil {
		return fmt.Errorf("backend %s failed: %w", opt.backend, err)
	}
	_, err = buf.WriteTo(out)
	return err
}

func execute(g *codegen.Gizmo, ss []samples.Sample, out io.Writer) error {
	m := vm.New(g.Program())
	for _, s := range ss {
		if s.Setup != nil {
			s.Setup(m)
		}
	}
	for _, s := range ss {
		args := s.Args(m)
		res, err := m.Invoke(s.Class, s.Entry, args...)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", s.Class, s.Entry, err)
		}
		fmt.Fprintf(out, "%s.%s(%s) = %v\n", s.Class, s.Entry, formatArgs(args), res)
	}
	return nil
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			parts[i] = fmt.Sprintf("%q", v)
		case *vm.Object:
			if name, ok := v.Fields["name"].(string); ok {
				parts[i] = v.Class.String() + "." + name
				continue
			}
			parts[i] = v.String()
		default:
			parts[i] = fmt.Sprint(a)
		}
	}
	return strings.Join(parts, ", ")
}
