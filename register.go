package disasm

import "fmt"

// Register is one of the eight canonical 32-bit IA-32 general-purpose
// registers, plus the handful of sub-register views a few opcodes target
// directly (AL, AX).
type Register int

// Canonical 3-bit register encodings, per Intel Vol. 2 Table 2-2.
const (
	EAX Register = iota
	ECX
	EDX
	EBX
	ESP
	EBP
	ESI
	EDI

	// Sub-register views used by a handful of accumulator-implicit forms.
	AL
	AX
)

var registerNames = map[Register]string{
	EAX: "eax", ECX: "ecx", EDX: "edx", EBX: "ebx",
	ESP: "esp", EBP: "ebp", ESI: "esi", EDI: "edi",
	AL: "al", AX: "ax",
}

func (r Register) String() string {
	if name, ok := registerNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reg(%d)", int(r))
}

// RegisterFromCode converts a 3-bit opcode/ModR/M register field into a
// Register. The field is always in 0..7 by construction (it is masked out
// of a byte); a value outside that range is an internal invariant
// violation, not a decode-local failure.
func RegisterFromCode(code byte) (Register, error) {
	if code > 7 {
		return 0, fmt.Errorf("%w: register code %d out of range 0..7", ErrInvariantViolation, code)
	}
	return Register(code), nil
}

// Scale is the SIB byte's ×1/×2/×4/×8 index multiplier.
type Scale int

const (
	ScaleOne Scale = iota
	ScaleTwo
	ScaleFour
	ScaleEight
)

// ScaleFromCode converts the 2-bit SIB scale field.
func ScaleFromCode(code byte) (Scale, error) {
	if code > 3 {
		return 0, fmt.Errorf("%w: scale code %d out of range 0..3", ErrInvariantViolation, code)
	}
	return Scale(code), nil
}

func (s Scale) String() string {
	switch s {
	case ScaleOne:
		return "1"
	case ScaleTwo:
		return "2"
	case ScaleFour:
		return "4"
	case ScaleEight:
		return "8"
	default:
		return fmt.Sprintf("scale(%d)", int(s))
	}
}

// Factor returns the scale's multiplier as an integer.
func (s Scale) Factor() int {
	switch s {
	case ScaleOne:
		return 1
	case ScaleTwo:
		return 2
	case ScaleFour:
		return 4
	case ScaleEight:
		return 8
	default:
		return 1
	}
}
