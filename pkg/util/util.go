package util

import (
	"fmt"
	"io"

	"github.com/xplshn/gizmo/pkg/config"
)

// Location names the member being built when a diagnostic is reported.
type Location struct {
	Class  string
	Method string
}

func (l Location) String() string {
	switch {
	case l.Class == "":
		return "gizmo"
	case l.Method == "":
		return l.Class
	default:
		return l.Class + "." + l.Method
	}
}

func colorize(cfg *config.Config, code, s string) string {
	if cfg != nil && !cfg.Color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// Warn prints a formatted warning if the corresponding warning is enabled.
func Warn(cfg *config.Config, wt config.Warning, loc Location, format string, args ...any) {
	if cfg == nil || !cfg.IsWarningEnabled(wt) {
		return
	}
	w := cfg.Diagnostics
	if w == nil {
		return
	}
	fmt.Fprintf(w, "%s: %s ", loc, colorize(cfg, "33", "warning:"))
	fmt.Fprintf(w, format, args...)
	fmt.Fprintf(w, " [-W%s]\n", cfg.Warnings[wt].Name)
}

// Info prints an informational driver message.
func Info(cfg *config.Config, format string, args ...any) {
	if cfg == nil || cfg.Diagnostics == nil || !cfg.Verbose {
		return
	}
	fmt.Fprintf(cfg.Diagnostics, "gizmo: info: "+format+"\n", args...)
}

// Report prints an error the way the driver shows fatal diagnostics.
func Report(cfg *config.Config, err error) {
	var w io.Writer
	if cfg != nil {
		w = cfg.Diagnostics
	}
	if w == nil {
		return
	}
	fmt.Fprintf(w, "gizmo: %s %v\n", colorize(cfg, "31", "error:"), err)
}
