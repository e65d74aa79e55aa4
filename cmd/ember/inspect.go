package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/diag"
	"ember/internal/driver"
	"ember/internal/mono"
)

var (
	inspectFlags  codegenFlags
	inspectFormat string
	inspectDemo   bool
	inspectIR     bool
	inspectConfig bool
)

func init() {
	inspectFlags.register(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "output format (text|json|msgpack)")
	inspectCmd.Flags().BoolVar(&inspectDemo, "demo", false, "inspect the built-in sample unit")
	inspectCmd.Flags().BoolVar(&inspectIR, "ir", false, "print the generated IR after the summary (text only)")
	inspectCmd.Flags().BoolVar(&inspectConfig, "effective-config", false, "print the settings in effect and exit")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [unit.emu|dir]...",
	Short: "Show the instantiations each unit generates",
	RunE:  runInspect,
}

// manifest is the machine-readable form of one unit's registry.
type manifest struct {
	Unit    string             `json:"unit" msgpack:"unit"`
	Aborted bool               `json:"aborted" msgpack:"aborted"`
	Types   []mono.TypeSummary `json:"types" msgpack:"types"`
	Funcs   []string           `json:"funcs" msgpack:"funcs"`
	Errors  []string           `json:"errors,omitempty" msgpack:"errors,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := inspectFlags.apply(cfg); err != nil {
		return err
	}
	if inspectConfig {
		text, err := cfg.Encode()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	}
	switch inspectFormat {
	case "text", "json", "msgpack":
	default:
		return fmt.Errorf("unsupported format %q (must be text, json or msgpack)", inspectFormat)
	}

	var inputs []driver.Input
	if inspectDemo {
		inputs = append(inputs, driver.Input{Unit: demoUnit()})
	}
	if len(args) > 0 {
		more, err := driver.ExpandInputs(args)
		if err != nil {
			return err
		}
		inputs = append(inputs, more...)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("nothing to inspect: pass unit files or --demo")
	}

	cfg.Build.Cache = false
	report, err := driver.Build(cmd.Context(), driver.Request{Inputs: inputs, Config: cfg})
	if err != nil {
		return err
	}
	manifests := make([]manifest, len(report.Units))
	for i, u := range report.Units {
		manifests[i] = toManifest(u)
	}

	out := cmd.OutOrStdout()
	switch inspectFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(manifests)
	case "msgpack":
		return msgpack.NewEncoder(out).Encode(manifests)
	}
	for i, m := range manifests {
		renderManifest(out, m)
		if inspectIR && !m.Aborted {
			fmt.Fprintln(out)
			fmt.Fprint(out, report.Units[i].IR)
		}
	}
	for _, c := range report.Merged.Conflicts {
		fmt.Fprintf(out, "conflict: %s\n", c.Error())
	}
	return nil
}

func toManifest(u driver.UnitResult) manifest {
	m := manifest{Unit: u.Name, Aborted: u.Aborted}
	if u.Summary != nil {
		m.Types = u.Summary.Types
		m.Funcs = u.Summary.Funcs
	}
	if u.Diagnostics != nil {
		for _, d := range u.Diagnostics.Items() {
			if d.Severity == diag.SevError {
				m.Errors = append(m.Errors, d.Code.ID()+": "+d.Message)
			}
		}
	}
	return m
}

func renderManifest(w io.Writer, m manifest) {
	status := ""
	if m.Aborted {
		status = " (aborted)"
	}
	fmt.Fprintf(w, "unit %s%s\n", m.Unit, status)
	fmt.Fprintf(w, "  types: %d\n", len(m.Types))
	for _, t := range m.Types {
		mark := ""
		if t.Placeholder {
			mark = " placeholder"
		}
		fmt.Fprintf(w, "    %-28s %-6s %s%s\n", t.Name, t.Kind, t.Body, mark)
	}
	fmt.Fprintf(w, "  funcs: %d\n", len(m.Funcs))
	if len(m.Funcs) > 0 {
		fmt.Fprintf(w, "    %s\n", strings.Join(m.Funcs, ", "))
	}
	for _, e := range m.Errors {
		fmt.Fprintf(w, "  error %s\n", e)
	}
}
