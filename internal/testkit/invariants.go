// Package testkit checks structural invariants of generated IR text. It is
// used by package tests; it is not an IR verifier.
package testkit

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	defineRe  = regexp.MustCompile(`^define (?:[a-z_]+ )*[^@]*(@[A-Za-z0-9_.$]+)\(`)
	declareRe = regexp.MustCompile(`^declare [^@]*(@[A-Za-z0-9_.$]+)\(`)
	typeRe    = regexp.MustCompile(`^(%struct\.[A-Za-z0-9_.$]+) = type `)
	callRe    = regexp.MustCompile(`call [^@(]*(@[A-Za-z0-9_.$]+)\(`)
	structRe  = regexp.MustCompile(`%struct\.[A-Za-z0-9_.$]+`)
)

var terminators = []string{"ret ", "br ", "unreachable", "switch "}

// CheckIR verifies that ir, as produced by one session:
//   - defines every named struct type before the first function
//   - defines each function at most once and never also declares it
//   - calls only symbols that are defined or declared
//   - refers only to defined struct types
//   - ends every basic block with a terminator
func CheckIR(ir string) error {
	var errs []error
	defined := map[string]bool{}
	declared := map[string]bool{}
	types := map[string]bool{}
	var calls, structRefs []string
	seenDefine := false

	lines := strings.Split(ir, "\n")
	inFunc := false
	block := ""
	terminated := true
	for n, line := range lines {
		lineNo := n + 1
		if m := typeRe.FindStringSubmatch(line); m != nil {
			if seenDefine {
				errs = append(errs, fmt.Errorf("line %d: type %s defined after a function", lineNo, m[1]))
			}
			types[m[1]] = true
			continue
		}
		if m := declareRe.FindStringSubmatch(line); m != nil {
			declared[m[1]] = true
			continue
		}
		if m := defineRe.FindStringSubmatch(line); m != nil {
			seenDefine = true
			if defined[m[1]] {
				errs = append(errs, fmt.Errorf("line %d: %s defined twice", lineNo, m[1]))
			}
			defined[m[1]] = true
			structRefs = append(structRefs, structRe.FindAllString(line, -1)...)
			inFunc = true
			block = ""
			terminated = true
			continue
		}
		if !inFunc {
			continue
		}
		switch {
		case line == "}":
			if !terminated {
				errs = append(errs, fmt.Errorf("line %d: block %s falls off the function", lineNo, block))
			}
			inFunc = false
		case strings.HasSuffix(line, ":") && !strings.HasPrefix(line, " "):
			if !terminated {
				errs = append(errs, fmt.Errorf("line %d: block %s has no terminator", lineNo, block))
			}
			block = strings.TrimSuffix(line, ":")
			terminated = false
		case strings.TrimSpace(line) == "":
		default:
			inst := strings.TrimSpace(line)
			if terminated {
				errs = append(errs, fmt.Errorf("line %d: instruction after terminator in %s: %s", lineNo, block, inst))
			}
			terminated = isTerminator(inst)
			for _, m := range callRe.FindAllStringSubmatch(inst, -1) {
				calls = append(calls, m[1])
			}
			structRefs = append(structRefs, structRe.FindAllString(inst, -1)...)
		}
	}

	for sym := range declared {
		if defined[sym] {
			errs = append(errs, fmt.Errorf("%s both declared and defined", sym))
		}
	}
	for _, sym := range calls {
		if !defined[sym] && !declared[sym] {
			errs = append(errs, fmt.Errorf("call to undeclared %s", sym))
			defined[sym] = true
		}
	}
	for _, ref := range structRefs {
		if !types[ref] {
			errs = append(errs, fmt.Errorf("type %s used but not defined", ref))
			types[ref] = true
		}
	}
	return errors.Join(errs...)
}

func isTerminator(inst string) bool {
	for _, t := range terminators {
		if strings.HasPrefix(inst, t) {
			return true
		}
	}
	return false
}
