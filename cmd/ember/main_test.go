package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"ember/internal/driver"
	"ember/internal/project"
	"ember/internal/testkit"
)

func TestDemoUnitBuilds(t *testing.T) {
	report, err := driver.Build(context.Background(), driver.Request{Inputs: []driver.Input{{Unit: demoUnit()}}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	u := report.Units[0]
	if u.Aborted {
		t.Fatalf("demo aborted: %v", u.Diagnostics.Items())
	}
	if err := testkit.CheckIR(u.IR); err != nil {
		t.Fatalf("malformed demo output: %v", err)
	}
	for _, want := range []string{
		"define i32 @main()",
		"@em_Point_cmp(",
		"@em_Point_hash(",
		"define linkonce_odr i32 @em_first__I32__Str(",
		"%struct.Pair__I32__Str = type { i32, ptr }",
		"call void @em_Handle_drop(",
	} {
		if !strings.Contains(u.IR, want) {
			t.Fatalf("missing %q:\n%s", want, u.IR)
		}
	}

	var buf bytes.Buffer
	renderManifest(&buf, toManifest(u))
	if !strings.Contains(buf.String(), "unit demo\n") || !strings.Contains(buf.String(), "Pair__I32__Str") {
		t.Fatalf("manifest:\n%s", buf.String())
	}
}

func TestCodegenFlagsOverride(t *testing.T) {
	cfg := project.Default()
	f := codegenFlags{prefix: "x_", strict: true}
	if err := f.apply(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Codegen.SymbolPrefix != "x_" || !cfg.Strict() || cfg.Target.Triple != project.DefaultTriple {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, true); err != nil {
		t.Fatalf("render: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Tool != "ember" || payload.Version == "" || payload.GitCommit != "unknown" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestShouldUseTUI(t *testing.T) {
	if on, err := shouldUseTUI("on"); err != nil || !on {
		t.Fatalf("on: %v %v", on, err)
	}
	if off, err := shouldUseTUI("OFF"); err != nil || off {
		t.Fatalf("off: %v %v", off, err)
	}
	if _, err := shouldUseTUI("sometimes"); err == nil {
		t.Fatalf("expected an error")
	}
}
