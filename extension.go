package disasm

import "fmt"

// Extension tags refine how a DecodeRule's operands are read from the byte
// stream: register-in-opcode, immediate/displacement widths, and ModR/M
// /digit constraints.
type Extension int

const (
	ExtRW  Extension = iota // register embedded in opcode, 16-bit (out of scope, retained for table fidelity)
	ExtRD                   // register embedded in opcode, 32-bit
	ExtIB                   // immediate, 1 byte
	ExtIW                   // immediate, 2 bytes
	ExtID                   // immediate, 4 bytes
	ExtCB                   // code offset, 1 byte (rel8)
	ExtCW                   // code offset, 2 bytes (rel16)
	ExtCD                   // code offset, 4 bytes (rel32)
	ExtSR                   // ModR/M.reg selects the operand register
	ExtS0
	ExtS1
	ExtS2
	ExtS3
	ExtS4
	ExtS5
	ExtS6
	ExtS7
	ExtRel8
	ExtRel16
	ExtRel32
)

func (e Extension) String() string {
	names := [...]string{
		"RW", "RD", "IB", "IW", "ID", "CB", "CW", "CD", "SR",
		"S0", "S1", "S2", "S3", "S4", "S5", "S6", "S7",
		"Rel8", "Rel16", "Rel32",
	}
	if int(e) < 0 || int(e) >= len(names) {
		return fmt.Sprintf("ext(%d)", int(e))
	}
	return names[e]
}

// ImmediateWidth returns the byte width an IB/IW/ID or CB/CW/CD extension
// implies, or 0 if the extension carries no width of its own.
func (e Extension) ImmediateWidth() int {
	switch e {
	case ExtIB, ExtCB, ExtRel8:
		return 1
	case ExtIW, ExtCW, ExtRel16:
		return 2
	case ExtID, ExtCD, ExtRel32:
		return 4
	default:
		return 0
	}
}

// sdigitOf returns the fixed /digit value an S0..S7 extension requires.
func sdigitOf(e Extension) (int, bool) {
	if e >= ExtS0 && e <= ExtS7 {
		return int(e - ExtS0), true
	}
	return 0, false
}

// ExtSet is an ordered set of Extensions attached to a DecodeRule.
type ExtSet []Extension

// Contains reports whether the set carries the given extension.
func (s ExtSet) Contains(e Extension) bool {
	for _, x := range s {
		if x == e {
			return true
		}
	}
	return false
}

// SDigit returns the fixed ModR/M.reg value required by an S0..S7 member,
// if any is present.
func (s ExtSet) SDigit() (int, bool) {
	for _, x := range s {
		if d, ok := sdigitOf(x); ok {
			return d, true
		}
	}
	return 0, false
}

// ImmediateExtension returns the IB/IW/ID member present, if any.
func (s ExtSet) ImmediateExtension() (Extension, bool) {
	for _, x := range s {
		switch x {
		case ExtIB, ExtIW, ExtID:
			return x, true
		}
	}
	return 0, false
}

// CodeOffsetExtension returns the CB/CW/CD member present, if any.
func (s ExtSet) CodeOffsetExtension() (Extension, bool) {
	for _, x := range s {
		switch x {
		case ExtCB, ExtCW, ExtCD:
			return x, true
		}
	}
	return 0, false
}
