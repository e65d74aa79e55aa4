package typeenv

import (
	"ember/internal/hir"
	"ember/internal/types"
)

// PreludeModule is the module name of the built-in declarations.
const PreludeModule = "prelude"

// Ordering and Maybe tags are fixed by declaration order.
const (
	OrderingLess    = 0
	OrderingEqual   = 1
	OrderingGreater = 2

	MaybeJust    = 0
	MaybeNothing = 1
)

// Prelude returns the declarations every unit may rely on. Units that
// declare their own Ordering or Maybe shadow these.
func Prelude() *hir.Module {
	return &hir.Module{
		Name: PreludeModule,
		Enums: []*hir.EnumDecl{
			{
				Name:     "Ordering",
				Variants: []hir.VariantDecl{{Name: "Less"}, {Name: "Equal"}, {Name: "Greater"}},
				Derives:  []hir.Trait{hir.TraitPartialEq, hir.TraitHash, hir.TraitDuplicate},
			},
			{
				Name:       "Maybe",
				TypeParams: []string{"T"},
				Variants: []hir.VariantDecl{
					{Name: "Just", Fields: []*types.Type{types.Param("T")}},
					{Name: "Nothing"},
				},
			},
		},
	}
}
