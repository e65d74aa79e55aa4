package derive

import (
	"fmt"
	"hash/fnv"
	"strings"

	"ember/internal/emit"
	"ember/internal/layout"
)

// TypeInfoBody is the layout of a reflection record:
// { id, name, kind, field count, field names, variant count, variant names }.
const TypeInfoBody = "{ i64, ptr, i32, i32, ptr, i32, ptr }"

// VariantNameMethod is exposed on enums deriving Reflect.
const VariantNameMethod = "variant_name"

// TypeID hashes a specialized type name with FNV-1a.
func TypeID(typeName string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(typeName))
	return h.Sum64()
}

func (s *Synthesizer) genReflect(l *layout.TypeLayout, sym, linkage string) {
	s.mod.DefineType("TypeInfo", TypeInfoBody)
	infoTy := emit.StructType("TypeInfo")

	var fieldNames, variantNames []string
	if l.Kind == layout.KindEnum {
		for _, v := range l.Variants {
			variantNames = append(variantNames, v.Name)
		}
	} else {
		for _, f := range l.Fields {
			fieldNames = append(fieldNames, f.Name)
		}
	}
	fieldsSym := s.nameArray(l.Name+".fields", fieldNames)
	variantsSym := s.nameArray(l.Name+".variants", variantNames)

	infoSym := s.mod.Symbol(l.Name + ".typeinfo")
	s.mod.AddGlobal(fmt.Sprintf("%s = private constant %s { i64 %d, ptr %s, i32 %d, i32 %d, ptr %s, i32 %d, ptr %s }",
		infoSym, infoTy,
		int64(TypeID(l.Name)),
		s.mod.StringConst(l.Name),
		reflectKind(l.Kind),
		len(fieldNames), fieldsSym,
		len(variantNames), variantsSym,
	))

	f := s.mod.NewFunc(sym, linkage, "ptr", nil)
	f.Ret("ptr", infoSym)
	f.Finish()

	if l.Kind != layout.KindEnum || len(variantNames) == 0 {
		return
	}
	vn := s.mod.NewFunc(s.Symbol(l.Name, VariantNameMethod), linkage, "ptr", []emit.Param{{Type: "ptr", Name: "this"}})
	tag := tagOf(vn, l, "%this")
	idx := vn.Assign("zext i32 %s to i64", tag)
	arrTy := fmt.Sprintf("[%d x ptr]", len(variantNames))
	p := vn.Assign("getelementptr inbounds %s, ptr %s, i64 0, i64 %s", arrTy, variantsSym, idx)
	vn.Ret("ptr", vn.Load("ptr", p))
	vn.Finish()
}

func (s *Synthesizer) nameArray(suffix string, names []string) string {
	if len(names) == 0 {
		return "null"
	}
	sym := s.mod.Symbol(suffix)
	elems := make([]string, len(names))
	for i, n := range names {
		elems[i] = "ptr " + s.mod.StringConst(n)
	}
	s.mod.AddGlobal(fmt.Sprintf("%s = private unnamed_addr constant [%d x ptr] [%s]", sym, len(names), strings.Join(elems, ", ")))
	return sym
}

func reflectKind(k layout.Kind) int {
	switch k {
	case layout.KindEnum:
		return 1
	case layout.KindTuple:
		return 2
	case layout.KindOpaque:
		return 3
	}
	return 0
}
