package hir

import "ember/internal/types"

// Constructors for building trees by hand: tests, fixtures and the
// `ember inspect --demo` sample. Spans are left zero.

func IntLit(v int64, t *types.Type) *Expr {
	return &Expr{Kind: ExprLiteral, Type: t, Data: &LiteralData{Kind: LiteralInt, IntValue: v}}
}

func FloatLit(v float64, t *types.Type) *Expr {
	return &Expr{Kind: ExprLiteral, Type: t, Data: &LiteralData{Kind: LiteralFloat, FloatValue: v}}
}

func BoolLit(v bool) *Expr {
	return &Expr{Kind: ExprLiteral, Type: types.Bool, Data: &LiteralData{Kind: LiteralBool, BoolValue: v}}
}

func StrLit(v string) *Expr {
	return &Expr{Kind: ExprLiteral, Type: types.Str, Data: &LiteralData{Kind: LiteralString, StringValue: v}}
}

func UnitLit() *Expr {
	return &Expr{Kind: ExprLiteral, Type: types.Unit, Data: &LiteralData{Kind: LiteralUnit}}
}

func Var(name string, t *types.Type) *Expr {
	return &Expr{Kind: ExprVarRef, Type: t, Data: &VarRefData{Name: name}}
}

func Unary(op UnaryOp, operand *Expr, t *types.Type) *Expr {
	return &Expr{Kind: ExprUnary, Type: t, Data: &UnaryData{Op: op, Operand: operand}}
}

func Binary(op BinaryOp, l, r *Expr, t *types.Type) *Expr {
	return &Expr{Kind: ExprBinary, Type: t, Data: &BinaryData{Op: op, Left: l, Right: r}}
}

func Call(callee string, t *types.Type, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Type: t, Data: &CallData{Callee: callee, Args: args}}
}

func GenericCall(callee string, typeArgs []*types.Type, t *types.Type, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Type: t, Data: &CallData{Callee: callee, TypeArgs: typeArgs, Args: args}}
}

func MethodCall(recv *Expr, method string, t *types.Type, args ...*Expr) *Expr {
	return &Expr{Kind: ExprMethodCall, Type: t, Data: &MethodCallData{Receiver: recv, Method: method, Args: args}}
}

func Field(obj *Expr, name string, t *types.Type) *Expr {
	return &Expr{Kind: ExprField, Type: t, Data: &FieldData{Object: obj, Field: name}}
}

func Index(obj, idx *Expr, t *types.Type) *Expr {
	return &Expr{Kind: ExprIndex, Type: t, Data: &IndexData{Object: obj, Index: idx}}
}

func StructLit(t *types.Type, fields ...FieldInit) *Expr {
	return &Expr{Kind: ExprStructLit, Type: t, Data: &StructLitData{Fields: fields}}
}

func EnumLit(t *types.Type, variant string, args ...*Expr) *Expr {
	return &Expr{Kind: ExprEnumLit, Type: t, Data: &EnumLitData{Variant: variant, Args: args}}
}

func TupleLit(t *types.Type, elems ...*Expr) *Expr {
	return &Expr{Kind: ExprTupleLit, Type: t, Data: &TupleLitData{Elems: elems}}
}

func ArrayLit(t *types.Type, elems ...*Expr) *Expr {
	return &Expr{Kind: ExprArrayLit, Type: t, Data: &ArrayLitData{Elems: elems}}
}

func Cast(v *Expr, t *types.Type) *Expr {
	return &Expr{Kind: ExprCast, Type: t, Data: &CastData{Value: v}}
}

func If(cond *Expr, then, els *Block, t *types.Type) *Expr {
	return &Expr{Kind: ExprIf, Type: t, Data: &IfData{Cond: cond, Then: then, Else: els}}
}

func Match(scrutinee *Expr, t *types.Type, arms ...MatchArm) *Expr {
	return &Expr{Kind: ExprMatch, Type: t, Data: &MatchData{Scrutinee: scrutinee, Arms: arms}}
}

func Arm(p *Pattern, body *Expr) MatchArm {
	return MatchArm{Pattern: p, Body: body}
}

func BlockExpr(b *Block, t *types.Type) *Expr {
	return &Expr{Kind: ExprBlock, Type: t, Data: &BlockData{Block: b}}
}

func Blk(tail *Expr, stmts ...*Stmt) *Block {
	return &Block{Stmts: stmts, Tail: tail}
}

func Let(name string, t *types.Type, v *Expr) *Stmt {
	return &Stmt{Kind: StmtLet, Data: &LetData{Name: name, Type: t, Value: v}}
}

func LetMut(name string, t *types.Type, v *Expr) *Stmt {
	return &Stmt{Kind: StmtLet, Data: &LetData{Name: name, Type: t, Value: v, Mut: true}}
}

func ExprStmt(e *Expr) *Stmt {
	return &Stmt{Kind: StmtExpr, Data: &ExprStmtData{Expr: e}}
}

func Assign(target, v *Expr) *Stmt {
	return &Stmt{Kind: StmtAssign, Data: &AssignData{Target: target, Value: v}}
}

func Return(v *Expr) *Stmt {
	return &Stmt{Kind: StmtReturn, Data: &ReturnData{Value: v}}
}

func Break() *Stmt { return &Stmt{Kind: StmtBreak, Data: &BreakData{}} }

func Continue() *Stmt { return &Stmt{Kind: StmtContinue, Data: &ContinueData{}} }

func While(cond *Expr, body *Block) *Stmt {
	return &Stmt{Kind: StmtWhile, Data: &WhileData{Cond: cond, Body: body}}
}

func Loop(body *Block) *Stmt {
	return &Stmt{Kind: StmtLoop, Data: &LoopData{Body: body}}
}

func BlockStmt(b *Block) *Stmt {
	return &Stmt{Kind: StmtBlock, Data: &BlockStmtData{Block: b}}
}

func IntPattern(v int64) *Pattern {
	return &Pattern{Kind: PatLiteral, Data: &LiteralPat{Value: LiteralData{Kind: LiteralInt, IntValue: v}}}
}

func FloatPattern(v float64) *Pattern {
	return &Pattern{Kind: PatLiteral, Data: &LiteralPat{Value: LiteralData{Kind: LiteralFloat, FloatValue: v}}}
}

func StrPattern(v string) *Pattern {
	return &Pattern{Kind: PatLiteral, Data: &LiteralPat{Value: LiteralData{Kind: LiteralString, StringValue: v}}}
}

func BoolPattern(v bool) *Pattern {
	return &Pattern{Kind: PatLiteral, Data: &LiteralPat{Value: LiteralData{Kind: LiteralBool, BoolValue: v}}}
}

func BindPattern(name string) *Pattern {
	return &Pattern{Kind: PatBinding, Data: &BindingPat{Name: name}}
}

func WildPattern() *Pattern {
	return &Pattern{Kind: PatWildcard, Data: &WildcardPat{}}
}

func VariantPattern(variant string, payload ...*Pattern) *Pattern {
	return &Pattern{Kind: PatEnumVariant, Data: &EnumVariantPat{Variant: variant, Payload: payload}}
}

func StructPattern(fields ...FieldPat) *Pattern {
	return &Pattern{Kind: PatStruct, Data: &StructPat{Fields: fields}}
}

func TuplePattern(elems ...*Pattern) *Pattern {
	return &Pattern{Kind: PatTuple, Data: &TuplePat{Elems: elems}}
}

func ArrayPattern(prefix []*Pattern, rest bool, suffix []*Pattern) *Pattern {
	return &Pattern{Kind: PatArray, Data: &ArrayPat{Prefix: prefix, Rest: rest, Suffix: suffix}}
}

func RangePattern(lo, hi int64, inclusive bool) *Pattern {
	return &Pattern{Kind: PatRange, Data: &RangePat{
		Lo:        LiteralData{Kind: LiteralInt, IntValue: lo},
		Hi:        LiteralData{Kind: LiteralInt, IntValue: hi},
		Inclusive: inclusive,
	}}
}

func OrPattern(alts ...*Pattern) *Pattern {
	return &Pattern{Kind: PatOr, Data: &OrPat{Alts: alts}}
}
