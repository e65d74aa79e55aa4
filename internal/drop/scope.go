package drop

import (
	"ember/internal/emit"
	"ember/internal/types"
)

// ScopeKind classifies a lexical scope on the drop stack.
type ScopeKind uint8

const (
	ScopeFunction ScopeKind = iota
	ScopeBlock
	ScopeLoop
	ScopeArm
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	case ScopeLoop:
		return "loop"
	case ScopeArm:
		return "arm"
	default:
		return "unknown"
	}
}

// moveState tracks ownership of a variable or one of its fields.
//
// moved is the compile-time view along straight-line code. Once a move or
// re-initialization happens under a condition the state gets a runtime
// flag, and every earlier unconditional move is back-filled through its
// hole so the flag is exact on every path.
type moveState struct {
	moved     bool
	flag      string
	moveHoles []*emit.Hole
}

func (st *moveState) touched() bool {
	return st != nil && (st.moved || st.flag != "")
}

type entry struct {
	name     string
	loc      string
	sem      *types.Type
	llType   string
	dropSym  string
	own      bool
	depth    int
	cond     int
	initHole *emit.Hole

	whole  moveState
	fields map[string]*moveState
}

type scope struct {
	kind    ScopeKind
	entries []*entry
}
