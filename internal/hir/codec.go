package hir

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/types"
)

// unitSchemaVersion is written ahead of every encoded unit. Bump it when
// the node layout changes so stale inputs are rejected instead of misread.
const unitSchemaVersion uint16 = 1

// Tagged nodes are encoded as [kind, type?, span, data] arrays; the kind
// selects the concrete Data type on decode.

func (e *Expr) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(4); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(e.Kind)); err != nil {
		return err
	}
	if err := enc.Encode(e.Type); err != nil {
		return err
	}
	if err := enc.Encode(e.Span); err != nil {
		return err
	}
	return enc.Encode(e.Data)
}

func (e *Expr) DecodeMsgpack(dec *msgpack.Decoder) error {
	if err := expectArray(dec, 4, "expr"); err != nil {
		return err
	}
	kind, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	e.Kind = ExprKind(kind)
	var ty *types.Type
	if err := dec.Decode(&ty); err != nil {
		return err
	}
	e.Type = ty
	if err := dec.Decode(&e.Span); err != nil {
		return err
	}
	data, err := newExprData(e.Kind)
	if err != nil {
		return err
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("expr %s: %w", e.Kind, err)
	}
	e.Data = data
	return nil
}

func newExprData(kind ExprKind) (ExprData, error) {
	switch kind {
	case ExprLiteral:
		return &LiteralData{}, nil
	case ExprVarRef:
		return &VarRefData{}, nil
	case ExprUnary:
		return &UnaryData{}, nil
	case ExprBinary:
		return &BinaryData{}, nil
	case ExprCall:
		return &CallData{}, nil
	case ExprMethodCall:
		return &MethodCallData{}, nil
	case ExprField:
		return &FieldData{}, nil
	case ExprIndex:
		return &IndexData{}, nil
	case ExprStructLit:
		return &StructLitData{}, nil
	case ExprEnumLit:
		return &EnumLitData{}, nil
	case ExprTupleLit:
		return &TupleLitData{}, nil
	case ExprArrayLit:
		return &ArrayLitData{}, nil
	case ExprCast:
		return &CastData{}, nil
	case ExprIf:
		return &IfData{}, nil
	case ExprMatch:
		return &MatchData{}, nil
	case ExprBlock:
		return &BlockData{}, nil
	}
	return nil, fmt.Errorf("unknown expression kind %d", kind)
}

func (s *Stmt) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(3); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(s.Kind)); err != nil {
		return err
	}
	if err := enc.Encode(s.Span); err != nil {
		return err
	}
	return enc.Encode(s.Data)
}

func (s *Stmt) DecodeMsgpack(dec *msgpack.Decoder) error {
	if err := expectArray(dec, 3, "stmt"); err != nil {
		return err
	}
	kind, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	s.Kind = StmtKind(kind)
	if err := dec.Decode(&s.Span); err != nil {
		return err
	}
	var data StmtData
	switch s.Kind {
	case StmtLet:
		data = &LetData{}
	case StmtExpr:
		data = &ExprStmtData{}
	case StmtAssign:
		data = &AssignData{}
	case StmtReturn:
		data = &ReturnData{}
	case StmtBreak:
		data = &BreakData{}
	case StmtContinue:
		data = &ContinueData{}
	case StmtWhile:
		data = &WhileData{}
	case StmtLoop:
		data = &LoopData{}
	case StmtBlock:
		data = &BlockStmtData{}
	default:
		return fmt.Errorf("unknown statement kind %d", kind)
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("stmt %s: %w", s.Kind, err)
	}
	s.Data = data
	return nil
}

func (p *Pattern) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(3); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(p.Kind)); err != nil {
		return err
	}
	if err := enc.Encode(p.Span); err != nil {
		return err
	}
	return enc.Encode(p.Data)
}

func (p *Pattern) DecodeMsgpack(dec *msgpack.Decoder) error {
	if err := expectArray(dec, 3, "pattern"); err != nil {
		return err
	}
	kind, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	p.Kind = PatternKind(kind)
	if err := dec.Decode(&p.Span); err != nil {
		return err
	}
	var data PatternData
	switch p.Kind {
	case PatLiteral:
		data = &LiteralPat{}
	case PatBinding:
		data = &BindingPat{}
	case PatWildcard:
		data = &WildcardPat{}
	case PatEnumVariant:
		data = &EnumVariantPat{}
	case PatStruct:
		data = &StructPat{}
	case PatTuple:
		data = &TuplePat{}
	case PatArray:
		data = &ArrayPat{}
	case PatRange:
		data = &RangePat{}
	case PatOr:
		data = &OrPat{}
	default:
		return fmt.Errorf("unknown pattern kind %d", kind)
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("pattern %s: %w", p.Kind, err)
	}
	p.Data = data
	return nil
}

func expectArray(dec *msgpack.Decoder, want int, what string) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("%s: expected %d elements, got %d", what, want, n)
	}
	return nil
}

// EncodeUnit writes the schema version followed by the unit.
func EncodeUnit(w io.Writer, u *Unit) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.EncodeUint16(unitSchemaVersion); err != nil {
		return err
	}
	return enc.Encode(u)
}

// DecodeUnit reads a unit written by EncodeUnit.
func DecodeUnit(r io.Reader) (*Unit, error) {
	dec := msgpack.NewDecoder(r)
	version, err := dec.DecodeUint16()
	if err != nil {
		return nil, fmt.Errorf("read unit header: %w", err)
	}
	if version != unitSchemaVersion {
		return nil, fmt.Errorf("unit schema %d not supported (want %d)", version, unitSchemaVersion)
	}
	var u Unit
	if err := dec.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode unit: %w", err)
	}
	if u.Module == nil {
		u.Module = &Module{Name: u.Name}
	}
	return &u, nil
}

// MarshalUnit is EncodeUnit into a byte slice.
func MarshalUnit(u *Unit) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeUnit(&buf, u); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
