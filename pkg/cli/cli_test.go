package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
)

func TestParse(t *testing.T) {
	var (
		out     string
		verbose bool
		jobs    int
		density float64
		warns   []string
	)
	fs := NewFlagSet("x")
	fs.String(&out, "output", "o", "-", "Output file", "file")
	fs.Bool(&verbose, "verbose", "v", false, "Verbose")
	fs.Int(&jobs, "jobs", "j", 1, "Workers")
	fs.Float(&density, "switch-density", "", 0.5, "Density")
	fs.Special(&warns, "W", "Warnings", "warning")

	err := fs.Parse([]string{"-o", "a.txt", "-v", "--jobs=4", "--switch-density", "0.25", "-Wspill", "-Wno-all", "in", "--", "-v"})
	be.Err(t, err, nil)
	be.Equal(t, out, "a.txt")
	be.True(t, verbose)
	be.Equal(t, jobs, 4)
	be.Equal(t, density, 0.25)
	if diff := cmp.Diff([]string{"spill", "no-all"}, warns); diff != "" {
		t.Errorf("prefix flags mismatch (-want +got):\n%s", diff)
	}
	be.Equal(t, fs.Args(), []string{"in", "-v"})
	be.Equal(t, fs.Lookup("jobs").DefValue, "1")
}

func TestParseErrors(t *testing.T) {
	var n int
	var s string
	fs := NewFlagSet("x")
	fs.Int(&n, "jobs", "j", 1, "Workers")
	fs.String(&s, "name", "", "", "Name", "s")

	be.Err(t, fs.Parse([]string{"--nope"}), "unknown flag: --nope")
	be.Err(t, fs.Parse([]string{"-q"}), "unknown shorthand flag: -q")
	be.Err(t, fs.Parse([]string{"--jobs=many"}), "invalid integer value")
	be.Err(t, fs.Parse([]string{"--name"}), "flag needs an argument")
	be.Err(t, fs.Parse([]string{"-j"}), "flag needs an argument: -j")
}

func TestRedefinitionPanics(t *testing.T) {
	var a, b bool
	fs := NewFlagSet("x")
	fs.Bool(&a, "all", "a", false, "")
	defer func() { be.True(t, recover() != nil) }()
	fs.Bool(&b, "all", "", false, "")
}

func TestRunAction(t *testing.T) {
	var got []string
	app := NewApp("tool")
	app.Action = func(args []string) error { got = args; return nil }
	be.Err(t, app.Run([]string{"a", "b"}), nil)
	be.Equal(t, got, []string{"a", "b"})
}

func TestRunReportsUsage(t *testing.T) {
	var stderr bytes.Buffer
	app := NewApp("tool")
	app.Synopsis = "[options]"
	app.Stderr = &stderr
	be.Err(t, app.Run([]string{"--bogus"}), "unknown flag")
	be.True(t, strings.Contains(stderr.String(), "Usage: tool [options]"))
}

func TestHelpPage(t *testing.T) {
	var stdout bytes.Buffer
	var warns []string
	var dump bool
	app := NewApp("tool")
	app.Synopsis = "[options]"
	app.Description = "Builds things."
	app.Stdout = &stdout
	fs := app.FlagSet
	fs.Bool(&dump, "dump", "d", false, "Dump the program")
	fs.Special(&warns, "W", "Toggle a warning", "warning")
	fs.AddFlagGroup(FlagGroup{Name: "Warnings", Prefix: "W", GroupType: "warning", Flags: []FlagGroupEntry{
		{Name: "spill", Usage: "Warn on spills"},
		{Name: "extra", Usage: "Extra warnings", Enabled: true},
	}})

	be.Err(t, app.Run([]string{"--help"}), nil)
	page := stdout.String()
	for _, want := range []string{"Synopsis", "tool [options]", "Builds things.", "-d, --dump", "-h, --help", "-Wno-<warning>"} {
		be.True(t, strings.Contains(page, want))
	}
	be.True(t, strings.Index(page, "extra") < strings.Index(page, "spill"))
	be.Equal(t, strings.Contains(page, "-W<warning> Toggle"), false)
}

func TestWrapText(t *testing.T) {
	be.Equal(t, wrapText("a bb ccc dddd", 6), []string{"a bb", "ccc", "dddd"})
	be.Equal(t, len(wrapText("   ", 10)), 0)
}
