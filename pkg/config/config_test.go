package config

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/gizmo/pkg/cli"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	be.True(t, cfg.IsFeatureEnabled(FeatTableSwitch))
	be.True(t, cfg.IsFeatureEnabled(FeatReachability))
	be.Equal(t, cfg.IsFeatureEnabled(FeatEnumOrdinal), false)
	be.Equal(t, cfg.IsWarningEnabled(WarnSpill), false)
	be.True(t, cfg.IsWarningEnabled(WarnDuplicateFinally))
	be.Equal(t, len(cfg.Features), int(FeatCount))
	be.Equal(t, len(cfg.Warnings), int(WarnCount))
	be.Equal(t, cfg.SwitchDensity, 0.5)
}

func TestProcessFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		check func(t *testing.T, cfg *Config)
	}{
		{"enable feature", []string{"-Fenum-ordinal"}, func(t *testing.T, cfg *Config) {
			be.True(t, cfg.IsFeatureEnabled(FeatEnumOrdinal))
		}},
		{"disable feature", []string{"-Fno-table-switch"}, func(t *testing.T, cfg *Config) {
			be.Equal(t, cfg.IsFeatureEnabled(FeatTableSwitch), false)
		}},
		{"all warnings", []string{"-Wall"}, func(t *testing.T, cfg *Config) {
			for w := Warning(0); w < WarnCount; w++ {
				be.True(t, cfg.IsWarningEnabled(w))
			}
		}},
		{"specific overrides all", []string{"-Wspill", "-Wno-all"}, func(t *testing.T, cfg *Config) {
			be.True(t, cfg.IsWarningEnabled(WarnSpill))
			be.Equal(t, cfg.IsWarningEnabled(WarnDuplicateFinally), false)
		}},
		{"without dash", []string{"Wdiscarded-value"}, func(t *testing.T, cfg *Config) {
			be.True(t, cfg.IsWarningEnabled(WarnDiscardedValue))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			be.Err(t, cfg.ProcessFlags(tt.flags), nil)
			tt.check(t, cfg)
		})
	}
}

func TestProcessFlagsErrors(t *testing.T) {
	cfg := NewConfig()
	be.Err(t, cfg.ProcessFlags([]string{"-Wbogus"}), "unknown warning 'bogus'")
	be.Err(t, cfg.ProcessFlags([]string{"-Fbogus"}), "unknown feature 'bogus'")
	be.Err(t, cfg.ProcessFlags([]string{"-O2"}), "unrecognized flag")
}

func TestSwitchDensity(t *testing.T) {
	cfg := NewConfig()
	be.Err(t, cfg.SetSwitchDensity(0), "switch density")
	be.Err(t, cfg.SetSwitchDensity(1.5), "switch density")
	be.Err(t, cfg.SetSwitchDensity(1), nil)
	be.Equal(t, cfg.SwitchDensity, 1.0)
}

func TestClone(t *testing.T) {
	cfg := NewConfig()
	c := cfg.Clone()
	c.SetFeature(FeatReachability, false)
	c.SetWarning(WarnSpill, true)
	c.MaxFinallyCopies = 1

	be.True(t, cfg.IsFeatureEnabled(FeatReachability))
	be.Equal(t, cfg.IsWarningEnabled(WarnSpill), false)
	be.Equal(t, cfg.MaxFinallyCopies, 8)
	be.Equal(t, c.IsFeatureEnabled(FeatReachability), false)
}

func TestSetupFlagGroups(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("x")
	apply := cfg.SetupFlagGroups(fs)

	be.Err(t, fs.Parse([]string{"-Wspill", "-Fno-reachability", "-Wall", "-Wno-extra", "in"}), nil)
	be.Err(t, apply(), nil)
	be.True(t, cfg.IsWarningEnabled(WarnSpill))
	be.True(t, cfg.IsWarningEnabled(WarnDiscardedValue))
	be.Equal(t, cfg.IsWarningEnabled(WarnExtra), false)
	be.Equal(t, cfg.IsFeatureEnabled(FeatReachability), false)
	be.Equal(t, fs.Args(), []string{"in"})

	bad := NewConfig()
	fs = cli.NewFlagSet("x")
	apply = bad.SetupFlagGroups(fs)
	be.Err(t, fs.Parse([]string{"-Fwarp-drive"}), nil)
	be.Err(t, apply(), "unknown feature 'warp-drive'")
}
