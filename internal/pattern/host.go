// Package pattern compiles match expressions into branch chains.
//
// The scrutinee is evaluated once. Arms are tested in source order; each
// arm's test is a chain of conditional branches that jumps to the next arm
// on the first failing check, so payload bytes are read only after the
// enclosing tag test succeeded. Bindings are materialized on arm entry and
// never own their value: each carries the Owner it borrows from, and moving
// a binding out is a move out of that owner.
package pattern

import (
	"ember/internal/diag"
	"ember/internal/drop"
	"ember/internal/emit"
	"ember/internal/hir"
	"ember/internal/mono"
	"ember/internal/types"
)

// Host is the lowering context the compiler runs inside.
type Host interface {
	Func() *emit.Func
	Registry() *mono.Registry
	Reporter() diag.Reporter
	// Lower evaluates an expression in the current block.
	Lower(e *hir.Expr) emit.Operand
	// Consume is Lower for a value that moves out of its place.
	Consume(e *hir.Expr) emit.Operand
	// PushScope opens a lexical scope together with its drop scope.
	PushScope(kind drop.ScopeKind)
	// PopScope emits the scope's destructors and closes it.
	PopScope()
	// Declare binds name to a place operand in the current scope.
	Declare(name string, place emit.Operand, owner Owner)
	// TrackTemp registers a spilled temporary with the enclosing scope so
	// it is destroyed like a hidden local. It returns the hidden name, or
	// "" when the value needs no destruction.
	TrackTemp(slot string, sem *types.Type) string
}

// Owner is the variable a binding points into. Field is the top-level
// struct field holding the binding; it is empty when the binding covers
// the whole value or sits inside an enum payload, tuple or array.
type Owner struct {
	Root  string
	Field string
}
