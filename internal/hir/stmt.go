package hir

import (
	"ember/internal/source"
	"ember/internal/types"
)

// StmtKind enumerates HIR statement kinds.
type StmtKind uint8

const (
	StmtLet StmtKind = iota
	StmtExpr
	StmtAssign
	StmtReturn
	StmtBreak
	StmtContinue
	StmtWhile
	StmtLoop
	StmtBlock
)

var stmtKindNames = [...]string{
	StmtLet:      "Let",
	StmtExpr:     "Expr",
	StmtAssign:   "Assign",
	StmtReturn:   "Return",
	StmtBreak:    "Break",
	StmtContinue: "Continue",
	StmtWhile:    "While",
	StmtLoop:     "Loop",
	StmtBlock:    "Block",
}

func (k StmtKind) String() string {
	if int(k) < len(stmtKindNames) {
		return stmtKindNames[k]
	}
	return "Unknown"
}

type Stmt struct {
	Kind StmtKind
	Span source.Span
	Data StmtData
}

type StmtData interface {
	stmtData()
}

// LetData declares Name. Value may be nil for a deferred initialization.
type LetData struct {
	Name  string
	Type  *types.Type
	Value *Expr
	Mut   bool
}

func (*LetData) stmtData() {}

type ExprStmtData struct {
	Expr *Expr
}

func (*ExprStmtData) stmtData() {}

// AssignData stores Value into a place: variable, field, deref or index.
type AssignData struct {
	Target *Expr
	Value  *Expr
}

func (*AssignData) stmtData() {}

// ReturnData: Value is nil for a bare return.
type ReturnData struct {
	Value *Expr
}

func (*ReturnData) stmtData() {}

type BreakData struct{}

func (*BreakData) stmtData() {}

type ContinueData struct{}

func (*ContinueData) stmtData() {}

type WhileData struct {
	Cond *Expr
	Body *Block
}

func (*WhileData) stmtData() {}

type LoopData struct {
	Body *Block
}

func (*LoopData) stmtData() {}

type BlockStmtData struct {
	Block *Block
}

func (*BlockStmtData) stmtData() {}
