package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gizmo/pkg/codegen"
	"github.com/xplshn/gizmo/pkg/config"
	"github.com/xplshn/gizmo/pkg/samples"
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cNone   = "\x1b[0m"
)

// Golden is the recorded output of one sample class.
type Golden struct {
	Class       string         `json:"class"`
	Fingerprint string         `json:"fingerprint"`
	Methods     []GoldenMethod `json:"methods"`
}

type GoldenMethod struct {
	Name        string   `json:"name"`
	Descriptor  string   `json:"descriptor"`
	Fingerprint string   `json:"fingerprint"`
	Listing     []string `json:"listing"`
}

type checkResult struct {
	Class   string
	Status  string // PASS, FAIL, NEW, ERROR
	Message string
	Diff    string
}

func goldenPath(dir, class string) string {
	return filepath.Join(dir, strings.ReplaceAll(class, "/", "_")+".json")
}

// record builds one sample in its own Gizmo; instances never share state,
// so workers may do this concurrently.
func record(cfg *config.Config, s samples.Sample) (*Golden, error) {
	g := codegen.New(cfg)
	cls, err := g.Class(s.Class, s.Build)
	if err != nil {
		return nil, err
	}
	gold := &Golden{Class: s.Class, Fingerprint: fmt.Sprintf("%016x", g.Program().Fingerprint())}
	for _, m := range cls.Methods {
		gold.Methods = append(gold.Methods, GoldenMethod{
			Name:        m.Desc.Name,
			Descriptor:  m.Desc.Descriptor(),
			Fingerprint: fmt.Sprintf("%016x", m.Fingerprint()),
			Listing:     strings.Split(strings.TrimSuffix(m.Code.Render(cls.Pool), "\n"), "\n"),
		})
	}
	return gold, nil
}

func checkOne(cfg *config.Config, s samples.Sample, dir string, update bool) checkResult {
	res := checkResult{Class: s.Class}
	got, err := record(cfg, s)
	if err != nil {
		res.Status, res.Message = "ERROR", err.Error()
		return res
	}
	path := goldenPath(dir, s.Class)

	data, err := os.ReadFile(path)
	switch {
	case update || os.IsNotExist(err):
		out, err := json.MarshalIndent(got, "", "  ")
		if err == nil {
			err = os.WriteFile(path, append(out, '\n'), 0o644)
		}
		if err != nil {
			res.Status, res.Message = "ERROR", fmt.Sprintf("failed to write golden file: %v", err)
			return res
		}
		res.Status, res.Message = "NEW", "golden file written to "+path
		return res
	case err != nil:
		res.Status, res.Message = "ERROR", fmt.Sprintf("could not read golden file: %v", err)
		return res
	}

	var want Golden
	if err := json.Unmarshal(data, &want); err != nil {
		res.Status, res.Message = "ERROR", fmt.Sprintf("could not parse golden file %s: %v", path, err)
		return res
	}
	if want.Fingerprint == got.Fingerprint {
		res.Status = "PASS"
		return res
	}
	res.Status, res.Message = "FAIL", "listing differs from "+path
	res.Diff = cmp.Diff(want, *got)
	return res
}

// checkGolden compares every sample against its golden file using a pool
// of workers and prints a summary. It fails if any sample fails.
func checkGolden(cfg *config.Config, ss []samples.Sample, dir string, update bool, jobs int, out io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	jobs = max(jobs, 1)

	tasks := make(chan samples.Sample, len(ss))
	results := make(chan checkResult, len(ss))
	var wg sync.WaitGroup
	for range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range tasks {
				results <- checkOne(cfg.Clone(), s, dir, update)
			}
		}()
	}
	for _, s := range ss {
		tasks <- s
	}
	close(tasks)
	wg.Wait()
	close(results)

	var all []checkResult
	for r := range results {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Class < all[j].Class })

	failed := 0
	for _, r := range all {
		color := cGreen
		switch r.Status {
		case "FAIL", "ERROR":
			color = cRed
			failed++
		case "NEW":
			color = cYellow
		}
		tag := "[" + r.Status + "]"
		if cfg.Color {
			tag = color + tag + cNone
		}
		fmt.Fprintf(out, "%s %s", tag, r.Class)
		if r.Message != "" {
			fmt.Fprintf(out, ": %s", r.Message)
		}
		fmt.Fprintln(out)
		if r.Diff != "" {
			fmt.Fprintf(out, "%s\n", r.Diff)
		}
	}
	fmt.Fprintf(out, "%d checked, %d failed\n", len(all), failed)
	if failed > 0 {
		return fmt.Errorf("%d golden checks failed", failed)
	}
	return nil
}
