package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Input and driver problems.
	IOInfo          Code = 4000
	IOLoadUnitError Code = 4001
	IOWriteError    Code = 4002
	IOCacheError    Code = 4003

	// Project configuration.
	PrjInfo          Code = 5000
	PrjBadConfig     Code = 5001
	PrjUnknownOption Code = 5002

	// Code generation. Warnings in this range are soft fallbacks.
	CgInfo                Code = 7000
	CgUnsupported         Code = 7001
	CgUnresolvedGeneric   Code = 7002
	CgMissingGenericBase  Code = 7003
	CgMissingLayout       Code = 7004
	CgUnknownSymbol       Code = 7005
	CgUnknownField        Code = 7006
	CgUnknownVariant      Code = 7007
	CgDeferredGeneric     Code = 7008
	CgLayoutConflict      Code = 7009
	CgBadPattern          Code = 7010
	CgLiteralOutOfRange   Code = 7011
	CgUnknownMethod       Code = 7012
	CgInvalidAssignTarget Code = 7013
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown error",
	IOInfo:                "I/O information",
	IOLoadUnitError:       "Failed to load compilation unit",
	IOWriteError:          "Failed to write output",
	IOCacheError:          "Output cache failure",
	PrjInfo:               "Project information",
	PrjBadConfig:          "Invalid project configuration",
	PrjUnknownOption:      "Unknown configuration option",
	CgInfo:                "Code generation information",
	CgUnsupported:         "Construct not supported by the backend",
	CgUnresolvedGeneric:   "Generic parameter left unresolved",
	CgMissingGenericBase:  "Generic declaration not found",
	CgMissingLayout:       "Field layout unavailable",
	CgUnknownSymbol:       "Unknown symbol",
	CgUnknownField:        "Unknown field",
	CgUnknownVariant:      "Unknown enum variant",
	CgDeferredGeneric:     "Generic instantiation never became concrete",
	CgLayoutConflict:      "Conflicting layouts for one specialized type",
	CgBadPattern:          "Pattern does not fit the matched type",
	CgLiteralOutOfRange:   "Literal does not fit the target width",
	CgUnknownMethod:       "Unknown method",
	CgInvalidAssignTarget: "Invalid assignment target",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("CG%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
