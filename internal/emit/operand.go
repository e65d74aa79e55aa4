package emit

import "ember/internal/types"

// Operand is a lowered value. When Place is set, Ref is a pointer to
// storage of type Type and must be loaded before use as a value.
type Operand struct {
	Ref   string
	Type  string
	Sem   *types.Type
	Place bool
}

// Value wraps an SSA value or constant.
func Value(ref, ty string, sem *types.Type) Operand {
	return Operand{Ref: ref, Type: ty, Sem: sem}
}

// Place wraps an address holding a value of type ty.
func Place(ptr, ty string, sem *types.Type) Operand {
	return Operand{Ref: ptr, Type: ty, Sem: sem, Place: true}
}

// VoidOperand is what a Unit-typed expression lowers to.
var VoidOperand = Operand{Type: "void", Sem: types.Unit}

func (o Operand) IsVoid() bool { return o.Type == "void" || o.Type == "" }
