package main

import (
	"github.com/spf13/cobra"

	"ember/internal/project"
)

// loadConfig reads --config, or the nearest ember.toml, or the defaults.
func loadConfig(cmd *cobra.Command) (*project.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path != "" {
		return project.LoadConfig(path)
	}
	cfg, _, err := project.Discover(".")
	return cfg, err
}

// codegenFlags are the overrides shared by build and inspect.
type codegenFlags struct {
	prefix string
	triple string
	strict bool
}

func (f *codegenFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "symbol prefix for user functions (overrides [codegen].symbol_prefix)")
	cmd.Flags().StringVar(&f.triple, "triple", "", "target triple (overrides [target].triple)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "treat generics that never become concrete as errors")
}

func (f *codegenFlags) apply(cfg *project.Config) error {
	if f.prefix != "" {
		cfg.Codegen.SymbolPrefix = f.prefix
	}
	if f.triple != "" {
		cfg.Target.Triple = f.triple
	}
	if f.strict {
		cfg.Codegen.Generics = project.GenericsStrict
	}
	return cfg.Validate()
}
