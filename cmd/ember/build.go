package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ember/internal/diag"
	"ember/internal/driver"
	"ember/internal/observ"
	"ember/internal/ui"
)

var (
	buildFlags     codegenFlags
	buildOutDir    string
	buildJobs      int
	buildNoCache   bool
	buildDropCache bool
	buildUI        string
	buildMaxDiags  int
)

func init() {
	buildFlags.register(buildCmd)
	buildCmd.Flags().StringVarP(&buildOutDir, "out-dir", "o", "", "directory receiving <unit>.ll (default: print IR to stdout)")
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", 0, "units generated in parallel (0 = [build].jobs or GOMAXPROCS)")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "neither read nor write the output cache")
	buildCmd.Flags().BoolVar(&buildDropCache, "clean-cache", false, "drop every cached unit before building")
	buildCmd.Flags().StringVar(&buildUI, "ui", "auto", "progress UI (auto|on|off)")
	buildCmd.Flags().IntVar(&buildMaxDiags, "max-diagnostics", 0, "diagnostics kept per unit (overrides [build].max_diagnostics)")
}

var buildCmd = &cobra.Command{
	Use:   "build [unit.emu|dir]...",
	Short: "Generate LLVM IR for encoded units",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if buildJobs > 0 {
		cfg.Build.Jobs = buildJobs
	}
	if buildMaxDiags > 0 {
		cfg.Build.MaxDiagnostics = buildMaxDiags
	}
	if buildNoCache {
		cfg.Build.Cache = false
	}
	if err := buildFlags.apply(cfg); err != nil {
		return err
	}

	inputs, err := driver.ExpandInputs(args)
	if err != nil {
		return err
	}
	timer := observ.NewTimer()
	req := driver.Request{Inputs: inputs, Config: cfg, OutDir: buildOutDir, Timer: timer}
	if cfg.Build.Cache {
		dir, err := cfg.ResolveCacheDir()
		if err != nil {
			return err
		}
		if req.Cache, err = driver.OpenCache(dir); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		if buildDropCache {
			if err := req.Cache.DropAll(); err != nil {
				return fmt.Errorf("cache: %w", err)
			}
		}
	}

	useUI, err := shouldUseTUI(buildUI)
	if err != nil {
		return err
	}
	var report *driver.Report
	if useUI {
		names := make([]string, len(inputs))
		for i, in := range inputs {
			names[i] = in.Path
		}
		report, err = ui.Run(cmd.ErrOrStderr(), "ember build", names, func(sink driver.ProgressSink) (*driver.Report, error) {
			r := req
			r.Progress = sink
			return driver.Build(cmd.Context(), r)
		})
	} else {
		report, err = driver.Build(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	color, err := useColor(cmd, os.Stderr)
	if err != nil {
		return err
	}
	printDiagnostics(cmd.ErrOrStderr(), report, color)
	if buildOutDir == "" {
		for _, u := range report.Units {
			if !u.Aborted {
				fmt.Fprint(cmd.OutOrStdout(), u.IR)
			}
		}
	}
	if timings, _ := cmd.Root().PersistentFlags().GetBool("timings"); timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d of %d units failed", n, len(report.Units))
	}
	return nil
}

func shouldUseTUI(mode string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "", "auto":
		return isTerminal(os.Stderr), nil
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", mode)
	}
}

func printDiagnostics(w io.Writer, report *driver.Report, color bool) {
	opts := diag.RenderOpts{Color: color, ShowNotes: true}
	for _, u := range report.Units {
		if u.Diagnostics == nil || u.Diagnostics.Len() == 0 {
			continue
		}
		u.Diagnostics.Sort()
		u.Diagnostics.Dedup()
		diag.Render(w, u.Diagnostics, u.Files, opts)
	}
	if report.Merge != nil && report.Merge.Len() > 0 {
		report.Merge.Sort()
		diag.Render(w, report.Merge, nil, opts)
	}
}
