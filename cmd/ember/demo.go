package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ember/internal/driver"
	"ember/internal/hir"
	"ember/internal/types"
)

var demoOut string

func init() {
	demoCmd.Flags().StringVarP(&demoOut, "out", "o", "demo"+driver.UnitExt, "where to write the unit")
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Write a small sample unit exercising generics, derives, drops and matches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := driver.WriteUnit(demoOut, demoUnit()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", demoOut)
		return nil
	},
}

// demoUnit builds:
//
//	struct Point { x: I32, y: I32 } derive(PartialEq, Ord, Hash)
//	struct Pair[T, U] { a: T, b: U }
//	enum Shape { Circle(I64), Square(I64), Dot }
//	struct Handle { fd: I32 }  impl Drop
//	fn first[T, U](p: Pair[T, U]) -> T
//	fn area(s: Shape) -> I64 { match s { ... } }
//	fn main()
func demoUnit() *hir.Unit {
	T, U := types.Param("T"), types.Param("U")
	point := types.Named("Point")
	pairTU := types.Named("Pair", T, U)
	pairIS := types.Named("Pair", types.I32, types.Str)
	shape := types.Named("Shape")
	handle := types.Named("Handle")

	pointLit := func(x, y int64) *hir.Expr {
		return hir.StructLit(point,
			hir.FieldInit{Name: "x", Value: hir.IntLit(x, types.I32)},
			hir.FieldInit{Name: "y", Value: hir.IntLit(y, types.I32)})
	}

	area := &hir.Func{
		Name:   "area",
		Params: []hir.Param{{Name: "s", Type: shape}},
		Result: types.I64,
		Body: hir.Blk(hir.Match(hir.Var("s", shape), types.I64,
			hir.Arm(hir.VariantPattern("Circle", hir.BindPattern("r")),
				hir.Binary(hir.BinMul, hir.IntLit(3, types.I64),
					hir.Binary(hir.BinMul, hir.Var("r", types.I64), hir.Var("r", types.I64), types.I64), types.I64)),
			hir.Arm(hir.VariantPattern("Square", hir.BindPattern("w")),
				hir.Binary(hir.BinMul, hir.Var("w", types.I64), hir.Var("w", types.I64), types.I64)),
			hir.Arm(hir.WildPattern(), hir.IntLit(0, types.I64)),
		)),
	}

	classify := &hir.Func{
		Name:   "classify",
		Params: []hir.Param{{Name: "n", Type: types.I32}},
		Result: types.I32,
		Body: hir.Blk(hir.Match(hir.Var("n", types.I32), types.I32,
			hir.Arm(hir.IntPattern(0), hir.IntLit(0, types.I32)),
			hir.Arm(hir.RangePattern(1, 10, false), hir.IntLit(1, types.I32)),
			hir.Arm(hir.WildPattern(), hir.IntLit(2, types.I32)),
		)),
	}

	first := &hir.Func{
		Name:       "first",
		TypeParams: []string{"T", "U"},
		Params:     []hir.Param{{Name: "p", Type: pairTU}},
		Result:     T,
		Body:       hir.Blk(hir.Field(hir.Var("p", pairTU), "a", T)),
	}

	main := &hir.Func{
		Name:   "main",
		Result: types.Unit,
		Body: hir.Blk(nil,
			hir.Let("h1", handle, hir.StructLit(handle, hir.FieldInit{Name: "fd", Value: hir.IntLit(3, types.I32)})),
			hir.Let("h2", handle, hir.StructLit(handle, hir.FieldInit{Name: "fd", Value: hir.IntLit(4, types.I32)})),
			hir.Let("p", point, pointLit(1, 2)),
			hir.Let("q", point, pointLit(1, 3)),
			hir.ExprStmt(hir.Call("print", types.Unit,
				hir.Binary(hir.BinLt, hir.Var("p", point), hir.Var("q", point), types.Bool))),
			hir.ExprStmt(hir.Call("print", types.Unit,
				hir.MethodCall(hir.Var("p", point), "hash", types.I64))),
			hir.Let("pair", pairIS, hir.StructLit(pairIS,
				hir.FieldInit{Name: "a", Value: hir.IntLit(7, types.I32)},
				hir.FieldInit{Name: "b", Value: hir.StrLit("seven")})),
			hir.ExprStmt(hir.Call("print", types.Unit,
				hir.Call("first", types.I32, hir.Var("pair", pairIS)))),
			hir.ExprStmt(hir.Call("print", types.Unit,
				hir.Call("area", types.I64, hir.EnumLit(shape, "Circle", hir.IntLit(2, types.I64))))),
			hir.ExprStmt(hir.Call("print", types.Unit,
				hir.Call("classify", types.I32, hir.IntLit(5, types.I32)))),
		),
	}

	return &hir.Unit{Name: "demo", Module: &hir.Module{
		Name: "demo",
		Structs: []*hir.StructDecl{
			{
				Name:    "Point",
				Fields:  []hir.FieldDecl{{Name: "x", Type: types.I32}, {Name: "y", Type: types.I32}},
				Derives: []hir.Trait{hir.TraitPartialEq, hir.TraitOrd, hir.TraitHash},
			},
			{Name: "Pair", TypeParams: []string{"T", "U"}, Fields: []hir.FieldDecl{{Name: "a", Type: T}, {Name: "b", Type: U}}},
			{Name: "Handle", Fields: []hir.FieldDecl{{Name: "fd", Type: types.I32}}},
		},
		Enums: []*hir.EnumDecl{{
			Name: "Shape",
			Variants: []hir.VariantDecl{
				{Name: "Circle", Fields: []*types.Type{types.I64}},
				{Name: "Square", Fields: []*types.Type{types.I64}},
				{Name: "Dot"},
			},
			Derives: []hir.Trait{hir.TraitReflect},
		}},
		Funcs: []*hir.Func{area, classify, first, main},
		Impls: []*hir.ImplDecl{{
			Behavior: "Drop",
			Target:   handle,
			Methods: []*hir.Func{{
				Name:   "drop",
				Params: []hir.Param{{Name: "this", Type: types.Pointer(handle, true)}},
				Result: types.Unit,
				Body: hir.Blk(nil, hir.ExprStmt(hir.Call("print", types.Unit,
					hir.Field(hir.Var("this", types.Pointer(handle, true)), "fd", types.I32)))),
			}},
		}},
	}}
}
