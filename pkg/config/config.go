package config

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type Feature int

const (
	FeatLineNumbers Feature = iota
	FeatLocalVarTable
	FeatTableSwitch
	FeatEnumOrdinal
	FeatCheckedCasts
	FeatReachability
	FeatCount
)

type Warning int

const (
	WarnDiscardedValue Warning = iota
	WarnSpill
	WarnDuplicateFinally
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// Config drives a Gizmo instance. It is read-only while classes are being
// built and may be shared by any number of sequential builds.
type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	// SwitchDensity is the minimum ratio of case count to key range for
	// which an int switch uses a jump table.
	SwitchDensity float64
	// MaxFinallyCopies is the number of finally replicas per try beyond
	// which the duplicate-finally warning fires.
	MaxFinallyCopies int
	// NoMatchError is the internal name of the throwable raised by an
	// expression switch without a default when no case matches.
	NoMatchError string

	Diagnostics io.Writer
	Color       bool
	Verbose     bool
}

func NewConfig() *Config {
	cfg := &Config{
		Features:         make(map[Feature]Info),
		Warnings:         make(map[Warning]Info),
		FeatureMap:       make(map[string]Feature),
		WarningMap:       make(map[string]Warning),
		SwitchDensity:    0.5,
		MaxFinallyCopies: 8,
		NoMatchError:     "java/lang/IncompatibleClassChangeError",
		Diagnostics:      os.Stderr,
		Color:            true,
	}

	features := map[Feature]Info{
		FeatLineNumbers:   {"line-numbers", true, "Emit line number entries for Line markers."},
		FeatLocalVarTable: {"local-var-table", true, "Emit local variable debug entries for named locals."},
		FeatTableSwitch:   {"table-switch", true, "Allow dense int switches to lower to a jump table."},
		FeatEnumOrdinal:   {"enum-ordinal", false, "Switch on ordinal() when every enum case carries a known ordinal."},
		FeatCheckedCasts:  {"checked-casts", true, "Emit checkcast when narrowing from the top reference type."},
		FeatReachability:  {"reachability", true, "Mark a block done after a construct whose every path terminates."},
	}

	warnings := map[Warning]Info{
		WarnDiscardedValue:   {"discarded-value", false, "Warn when a computed value is never used and gets popped."},
		WarnSpill:            {"spill", false, "Warn when a value is used out of order and spilled to a temporary."},
		WarnDuplicateFinally: {"duplicate-finally", true, "Warn when a finally body is replicated many times."},
		WarnExtra:            {"extra", true, "Warn when discarding an expression that has no effect."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// Clone returns a deep copy so callers can tweak settings per build.
func (c *Config) Clone() *Config {
	n := *c
	n.Features = make(map[Feature]Info, len(c.Features))
	n.Warnings = make(map[Warning]Info, len(c.Warnings))
	for k, v := range c.Features {
		n.Features[k] = v
	}
	for k, v := range c.Warnings {
		n.Warnings[k] = v
	}
	return &n
}

// SetSwitchDensity validates and stores the jump table threshold.
func (c *Config) SetSwitchDensity(d float64) error {
	if d <= 0 || d > 1 {
		return fmt.Errorf("switch density must be in (0, 1], got %g", d)
	}
	c.SwitchDensity = d
	return nil
}

// splitToggle breaks "-Wno-spill" into ('W', "spill", false).
func splitToggle(flag string) (kind byte, name string, enable bool, ok bool) {
	body := strings.TrimPrefix(flag, "-")
	if body == "" || (body[0] != 'W' && body[0] != 'F') {
		return 0, "", false, false
	}
	name, negated := strings.CutPrefix(body[1:], "no-")
	return body[0], name, !negated, name != ""
}

func (c *Config) applyFlag(flag string) error {
	kind, name, enable, ok := splitToggle(flag)
	if !ok {
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	if kind == 'F' {
		ft, known := c.FeatureMap[name]
		if !known {
			return fmt.Errorf("unknown feature '%s'", name)
		}
		c.SetFeature(ft, enable)
		return nil
	}
	if name == "all" {
		for wt := range c.Warnings {
			c.SetWarning(wt, enable)
		}
		return nil
	}
	wt, known := c.WarningMap[name]
	if !known {
		return fmt.Errorf("unknown warning '%s'", name)
	}
	c.SetWarning(wt, enable)
	return nil
}

// ProcessFlags applies -W/-F flags; -Wall and -Wno-all go first so that
// specific flags can override them.
func (c *Config) ProcessFlags(flags []string) error {
	ordered := make([]string, 0, len(flags))
	for _, all := range []bool{true, false} {
		for _, f := range flags {
			if kind, name, _, _ := splitToggle(f); (kind == 'W' && name == "all") == all {
				ordered = append(ordered, f)
			}
		}
	}
	for _, f := range ordered {
		if err := c.applyFlag(f); err != nil {
			return err
		}
	}
	return nil
}
