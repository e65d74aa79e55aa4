package hir

import "strings"

// Trait is the closed set of behaviors the backend can synthesize.
type Trait uint8

const (
	TraitInvalid Trait = iota
	TraitPartialEq
	TraitPartialOrd
	TraitOrd
	TraitHash
	TraitDuplicate
	TraitReflect
	TraitDebug
	TraitDisplay
)

var traitNames = [...]string{
	TraitInvalid:    "Invalid",
	TraitPartialEq:  "PartialEq",
	TraitPartialOrd: "PartialOrd",
	TraitOrd:        "Ord",
	TraitHash:       "Hash",
	TraitDuplicate:  "Duplicate",
	TraitReflect:    "Reflect",
	TraitDebug:      "Debug",
	TraitDisplay:    "Display",
}

func (t Trait) String() string {
	if int(t) < len(traitNames) {
		return traitNames[t]
	}
	return "Invalid"
}

// AllTraits lists every synthesizable trait in declaration order.
func AllTraits() []Trait {
	return []Trait{TraitPartialEq, TraitPartialOrd, TraitOrd, TraitHash, TraitDuplicate, TraitReflect, TraitDebug, TraitDisplay}
}

// ParseTrait maps a derive name from the front end to a Trait.
// "Eq" and "Clone" are accepted as aliases.
func ParseTrait(name string) (Trait, bool) {
	switch strings.TrimSpace(name) {
	case "PartialEq", "Eq":
		return TraitPartialEq, true
	case "PartialOrd":
		return TraitPartialOrd, true
	case "Ord":
		return TraitOrd, true
	case "Hash":
		return TraitHash, true
	case "Duplicate", "Clone":
		return TraitDuplicate, true
	case "Reflect":
		return TraitReflect, true
	case "Debug":
		return TraitDebug, true
	case "Display":
		return TraitDisplay, true
	}
	return TraitInvalid, false
}

// Method is the method name the synthesized implementation is exposed under.
func (t Trait) Method() string {
	switch t {
	case TraitPartialEq:
		return "eq"
	case TraitPartialOrd:
		return "partial_cmp"
	case TraitOrd:
		return "cmp"
	case TraitHash:
		return "hash"
	case TraitDuplicate:
		return "duplicate"
	case TraitReflect:
		return "type_info"
	case TraitDebug:
		return "debug_string"
	case TraitDisplay:
		return "to_string"
	}
	return ""
}

// TraitForMethod is the inverse of Method.
func TraitForMethod(method string) (Trait, bool) {
	for _, t := range AllTraits() {
		if t.Method() == method {
			return t, true
		}
	}
	return TraitInvalid, false
}
