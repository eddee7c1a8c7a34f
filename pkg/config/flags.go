package config

import (
	"sort"

	"github.com/xplshn/gizmo/pkg/cli"
)

// SetupFlagGroups registers the -W and -F prefix flags on fs and lists the
// known warnings and features on its help page. The returned function
// applies whatever toggles were parsed.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (apply func() error) {
	var warnings, features []string
	fs.Special(&warnings, "W", "Enable or disable a warning (-Wall, -Wno-<name>)", "warning")
	fs.Special(&features, "F", "Enable or disable a feature (-Fno-<name>)", "feature")

	var wEntries, fEntries []cli.FlagGroupEntry
	for _, info := range c.Warnings {
		wEntries = append(wEntries, cli.FlagGroupEntry{Name: info.Name, Usage: info.Description, Enabled: info.Enabled})
	}
	for _, info := range c.Features {
		fEntries = append(fEntries, cli.FlagGroupEntry{Name: info.Name, Usage: info.Description, Enabled: info.Enabled})
	}
	byName := func(es []cli.FlagGroupEntry) {
		sort.Slice(es, func(i, j int) bool { return es[i].Name < es[j].Name })
	}
	byName(wEntries)
	byName(fEntries)
	fs.AddFlagGroup(cli.FlagGroup{Name: "Warning Flags", Prefix: "W", GroupType: "warning", Flags: wEntries})
	fs.AddFlagGroup(cli.FlagGroup{Name: "Feature Flags", Prefix: "F", GroupType: "feature", Flags: fEntries})

	return func() error {
		flags := make([]string, 0, len(warnings)+len(features))
		for _, w := range warnings {
			flags = append(flags, "-W"+w)
		}
		for _, f := range features {
			flags = append(flags, "-F"+f)
		}
		return c.ProcessFlags(flags)
	}
}
