package disasm

import (
	"encoding/binary"
	"fmt"
)

// Offset is a 32-bit byte address into the input stream, used both as the
// current sweep position and as a label target. Offset is the only form of
// cross-line reference the listing ever carries — never a pointer — so
// that a branch instruction and its target never form an ownership cycle.
type Offset uint32

func (o Offset) String() string {
	return fmt.Sprintf("offset_%08Xh", uint32(o))
}

// DisplacementKind tags which of the seven Displacement shapes a value is.
type DisplacementKind int

const (
	DispNone DisplacementKind = iota
	DispAbs8
	DispAbs16
	DispAbs32
	DispRel8
	DispRel16
	DispRel32
)

// Displacement is a signed offset: either memory-relative (Abs*, inside a
// ModR/M addressing form) or PC-relative (Rel*, a jump/call target).
type Displacement struct {
	Kind  DisplacementKind
	Value uint32 // raw bits; sign interpretation is width-dependent
}

// readDisplacement reads a little-endian displacement of the given byte
// width from bytes[at:], tagging it with kind.
func readDisplacement(bytes []byte, at int, width int, kind DisplacementKind) (Displacement, error) {
	if at+width > len(bytes) {
		return Displacement{}, fmt.Errorf("%w: need %d displacement bytes at %d, have %d", ErrInvalidDisplacementByteWidth, width, at, len(bytes)-at)
	}
	var v uint32
	switch width {
	case 1:
		v = uint32(bytes[at])
	case 2:
		v = uint32(binary.LittleEndian.Uint16(bytes[at : at+2]))
	case 4:
		v = binary.LittleEndian.Uint32(bytes[at : at+4])
	default:
		return Displacement{}, fmt.Errorf("%w: unsupported displacement width %d", ErrInvalidDisplacementByteWidth, width)
	}
	return Displacement{Kind: kind, Value: v}, nil
}

// SignExtend32 sign-extends the displacement's raw bits to a full 32-bit
// signed value, per its width.
func (d Displacement) SignExtend32() int32 {
	switch d.Kind {
	case DispAbs8, DispRel8:
		return int32(int8(d.Value))
	case DispAbs16, DispRel16:
		return int32(int16(d.Value))
	default:
		return int32(d.Value)
	}
}

// Len returns the displacement's byte width (0 for None).
func (d Displacement) Len() int {
	switch d.Kind {
	case DispAbs8, DispRel8:
		return 1
	case DispAbs16, DispRel16:
		return 2
	case DispAbs32, DispRel32:
		return 4
	default:
		return 0
	}
}

// absoluteString renders an Abs* displacement for use inside an effective
// address: zero-extended to 8 hex digits, e.g. 0x000000NN.
func (d Displacement) absoluteString() string {
	return fmt.Sprintf("0x%08X", d.Value)
}

// ImmediateKind tags the byte width of an Immediate.
type ImmediateKind int

const (
	Imm8 ImmediateKind = iota
	Imm16
	Imm32
	Imm64
)

// Immediate carries 1, 2, 4, or 8 raw bytes, read little-endian from the
// stream but displayed in big-endian digit order (§6, §9).
type Immediate struct {
	Kind  ImmediateKind
	Bytes []byte // little-endian as read; length matches Kind
}

func readImmediate(bytes []byte, at int, width int) (Immediate, error) {
	if at+width > len(bytes) {
		return Immediate{}, fmt.Errorf("%w: need %d immediate bytes at %d, have %d", ErrInvalidLength, width, at, len(bytes)-at)
	}
	var kind ImmediateKind
	switch width {
	case 1:
		kind = Imm8
	case 2:
		kind = Imm16
	case 4:
		kind = Imm32
	case 8:
		kind = Imm64
	default:
		return Immediate{}, fmt.Errorf("%w: unsupported immediate width %d", ErrInvalidLength, width)
	}
	raw := make([]byte, width)
	copy(raw, bytes[at:at+width])
	return Immediate{Kind: kind, Bytes: raw}, nil
}

// String renders the immediate's bytes in big-endian digit order: the wire
// is little-endian, so display reverses it (e.g. DD CC BB AA -> 0xAABBCCDD).
func (im Immediate) String() string {
	s := "0x"
	for i := len(im.Bytes) - 1; i >= 0; i-- {
		s += fmt.Sprintf("%02X", im.Bytes[i])
	}
	return s
}

// EffectiveAddress is the reconstructed symbolic memory operand, per
// Intel Table 2-2 / 2-3 (§4.3).
type EffectiveAddress struct {
	kind eaKind

	Reg   Register     // eaRegister
	Index Register     // eaIndexDisp, eaIndexBaseDisp
	Scale Scale         // eaIndexDisp, eaIndexBaseDisp
	Base  Register     // eaBaseDisp, eaIndexBaseDisp
	Disp  Displacement // eaDisplacement, eaBaseDisp (optional), eaIndexDisp, eaIndexBaseDisp (optional)
}

type eaKind int

const (
	eaRegister eaKind = iota
	eaDisplacement
	eaBaseDisp
	eaIndexDisp
	eaIndexBaseDisp
)

// EARegister builds the MOD=11 "bare register" shape.
func EARegister(r Register) EffectiveAddress {
	return EffectiveAddress{kind: eaRegister, Reg: r}
}

// EADisplacement builds the "[disp32]" shape (no base, no index).
func EADisplacement(d Displacement) EffectiveAddress {
	return EffectiveAddress{kind: eaDisplacement, Disp: d}
}

// EABaseDisp builds the "[base]" / "[base+disp]" shape.
func EABaseDisp(base Register, d Displacement) EffectiveAddress {
	return EffectiveAddress{kind: eaBaseDisp, Base: base, Disp: d}
}

// EAIndexDisp builds the "[index*scale+disp32]" shape (SIB, no base).
func EAIndexDisp(index Register, scale Scale, d Displacement) EffectiveAddress {
	return EffectiveAddress{kind: eaIndexDisp, Index: index, Scale: scale, Disp: d}
}

// EAIndexBaseDisp builds the full "[index*scale+base+disp]" shape.
func EAIndexBaseDisp(index Register, scale Scale, base Register, d Displacement) EffectiveAddress {
	return EffectiveAddress{kind: eaIndexBaseDisp, Index: index, Scale: scale, Base: base, Disp: d}
}

func (ea EffectiveAddress) String() string {
	switch ea.kind {
	case eaRegister:
		return ea.Reg.String()
	case eaDisplacement:
		return fmt.Sprintf("[ %s ]", ea.Disp.absoluteString())
	case eaBaseDisp:
		if ea.Disp.Kind == DispNone || ea.Disp.Value == 0 {
			return fmt.Sprintf("[ %s ]", ea.Base)
		}
		return fmt.Sprintf("[ %s + %s ]", ea.Base, ea.Disp.absoluteString())
	case eaIndexDisp:
		return fmt.Sprintf("[ %s%s + %s ]", ea.Index, scaleSuffix(ea.Scale), ea.Disp.absoluteString())
	case eaIndexBaseDisp:
		if ea.Disp.Kind == DispNone || ea.Disp.Value == 0 {
			return fmt.Sprintf("[ %s%s + %s ]", ea.Index, scaleSuffix(ea.Scale), ea.Base)
		}
		return fmt.Sprintf("[ %s%s + %s + %s ]", ea.Index, scaleSuffix(ea.Scale), ea.Base, ea.Disp.absoluteString())
	default:
		return "<invalid effective address>"
	}
}

// scaleSuffix renders " * N" for the index term, omitted entirely when the
// scale is ×1 (per original_source's Scale::format_optional_operand).
func scaleSuffix(s Scale) string {
	if s == ScaleOne {
		return ""
	}
	return fmt.Sprintf(" * %s", s)
}

// OperandKind tags which concrete shape an Operand holds.
type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandImmediate
	OperandDisplacement
	OperandEffectiveAddress
	OperandLabel
)

// Operand is a concrete, rendered piece of an instruction's operand list.
type Operand struct {
	Kind OperandKind

	Reg   Register
	Imm   Immediate
	Disp  Displacement
	EA    EffectiveAddress
	Label Offset
}

func OpRegister(r Register) Operand             { return Operand{Kind: OperandRegister, Reg: r} }
func OpImmediate(i Immediate) Operand           { return Operand{Kind: OperandImmediate, Imm: i} }
func OpDisplacement(d Displacement) Operand     { return Operand{Kind: OperandDisplacement, Disp: d} }
func OpEffectiveAddress(ea EffectiveAddress) Operand {
	return Operand{Kind: OperandEffectiveAddress, EA: ea}
}
func OpLabel(o Offset) Operand { return Operand{Kind: OperandLabel, Label: o} }

func (op Operand) String() string {
	switch op.Kind {
	case OperandRegister:
		return op.Reg.String()
	case OperandImmediate:
		return op.Imm.String()
	case OperandDisplacement:
		// A Rel* displacement rendered outside the label-making set:
		// raw absolute (sign-extended) value, per spec §9's open question.
		v := op.Disp.SignExtend32()
		if v < 0 {
			return fmt.Sprintf("-0x%X", -v)
		}
		return fmt.Sprintf("0x%X", v)
	case OperandEffectiveAddress:
		return op.EA.String()
	case OperandLabel:
		return op.Label.String()
	default:
		return "<invalid operand>"
	}
}
