package disasm

import (
	"errors"
	"fmt"
)

// Decode attempts to interpret bytes[0:] at stream address `at` as an
// instance of `rule` (§4.6). It returns the decoded instruction and its
// total length on success. Any returned error other than one wrapping
// ErrInvariantViolation is decode-local: the caller should try the next
// candidate rule, never abort the sweep.
func Decode(at Offset, bytes []byte, rule DecodeRule) (Instruction, int, error) {
	full := rule.FullBytes()
	if len(bytes) < len(full) {
		return Instruction{}, 0, fmt.Errorf("%w: window too short for opcode", ErrUnknownOpcode)
	}
	for i, b := range full {
		if bytes[i] != b {
			return Instruction{}, 0, fmt.Errorf("%w: byte %d mismatch", ErrUnknownOpcode, i)
		}
	}
	pos := len(full)

	var modrm *ModRM
	var sib *Sib
	var disp Displacement

	if rule.Encoding.RequiresModRM() {
		if pos >= len(bytes) {
			return Instruction{}, 0, fmt.Errorf("%w: no ModR/M byte available", ErrInvalidLength)
		}
		parsed, err := ParseModRM(bytes[pos], rule)
		if err != nil {
			return Instruction{}, 0, err
		}
		modrm = &parsed
		pos++

		if modrm.PrecedesSib() {
			if pos >= len(bytes) {
				return Instruction{}, 0, fmt.Errorf("%w: no SIB byte available", ErrInvalidSib)
			}
			parsedSib, err := ParseSib(bytes[pos])
			if err != nil {
				return Instruction{}, 0, err
			}
			sib = &parsedSib
			pos++
		}

		dispLen := bytesRemaining(*modrm, sib)
		if dispLen > 0 {
			kind := DispAbs32
			if dispLen == 1 {
				kind = DispAbs8
			}
			d, err := readDisplacement(bytes, pos, dispLen, kind)
			if err != nil {
				return Instruction{}, 0, err
			}
			disp = d
			pos += dispLen
		}
	}

	var operands []Operand

	switch rule.Encoding {
	case OpZO:
		// no operands

	case OpO:
		reg, err := embeddedRegister(rule)
		if err != nil {
			return Instruction{}, 0, err
		}
		operands = []Operand{OpRegister(reg)}

	case OpOI:
		reg, err := embeddedRegister(rule)
		if err != nil {
			return Instruction{}, 0, err
		}
		ext, ok := rule.Extensions.ImmediateExtension()
		if !ok {
			return Instruction{}, 0, fmt.Errorf("%w: OI rule missing immediate extension", ErrInvalidOpCodeExtension)
		}
		value, n, err := readImmediateAt(bytes, pos, ext)
		if err != nil {
			return Instruction{}, 0, err
		}
		pos += n
		operands = []Operand{OpRegister(reg), OpImmediate(value)}

	case OpI:
		ext, ok := rule.Extensions.ImmediateExtension()
		if !ok {
			return Instruction{}, 0, fmt.Errorf("%w: I rule missing immediate extension", ErrInvalidOpCodeExtension)
		}
		value, n, err := readImmediateAt(bytes, pos, ext)
		if err != nil {
			return Instruction{}, 0, err
		}
		pos += n
		if implicitAccumulatorOpcodes.Contains(rule.Opcode[0]) {
			operands = []Operand{OpRegister(implicitAccumulatorFor(ext)), OpImmediate(value)}
		} else {
			operands = []Operand{OpImmediate(value)}
		}

	case OpD:
		ext, ok := rule.Extensions.CodeOffsetExtension()
		if !ok {
			return Instruction{}, 0, fmt.Errorf("%w: D rule missing code-offset extension", ErrInvalidOpCodeExtension)
		}
		width := ext.ImmediateWidth()
		kind := relKindForWidth(width)
		d, err := readDisplacement(bytes, pos, width, kind)
		if err != nil {
			return Instruction{}, 0, err
		}
		pos += width
		length := pos
		// PC-relative target: instruction_start + instruction_length + sign_extend(disp), wrapping 32-bit (§9).
		target := uint32(at) + uint32(length) + uint32(d.SignExtend32())
		if labelMakingSet.Contains(rule.Mnemonic) {
			operands = []Operand{OpLabel(Offset(target))}
		} else {
			operands = []Operand{OpDisplacement(d)}
		}

	case OpM, OpM1, OpMI, OpMR, OpRM, OpRMI:
		ea, err := buildEffectiveAddress(*modrm, sib, disp)
		if err != nil {
			return Instruction{}, 0, err
		}
		eaOperand := OpEffectiveAddress(ea)

		switch rule.Encoding {
		case OpM:
			operands = []Operand{eaOperand}
		case OpM1:
			operands = []Operand{eaOperand, OpImmediate(Immediate{Kind: Imm8, Bytes: []byte{1}})}
		case OpMI:
			ext, ok := rule.Extensions.ImmediateExtension()
			if !ok {
				return Instruction{}, 0, fmt.Errorf("%w: MI rule missing immediate extension", ErrInvalidOpCodeExtension)
			}
			value, n, err := readImmediateAt(bytes, pos, ext)
			if err != nil {
				return Instruction{}, 0, err
			}
			pos += n
			operands = []Operand{eaOperand, OpImmediate(value)}
		case OpMR:
			operands = []Operand{eaOperand, OpRegister(modrm.Reg)}
		case OpRM:
			operands = []Operand{OpRegister(modrm.Reg), eaOperand}
		case OpRMI:
			ext, ok := rule.Extensions.ImmediateExtension()
			if !ok {
				return Instruction{}, 0, fmt.Errorf("%w: RMI rule missing immediate extension", ErrInvalidOpCodeExtension)
			}
			value, n, err := readImmediateAt(bytes, pos, ext)
			if err != nil {
				return Instruction{}, 0, err
			}
			pos += n
			operands = []Operand{OpRegister(modrm.Reg), eaOperand, OpImmediate(value)}
		}

	case OpFD:
		d, err := readDisplacement(bytes, pos, 4, DispAbs32)
		if err != nil {
			return Instruction{}, 0, err
		}
		pos += 4
		operands = []Operand{OpRegister(EAX), OpEffectiveAddress(EADisplacement(d))}

	case OpTD:
		d, err := readDisplacement(bytes, pos, 4, DispAbs32)
		if err != nil {
			return Instruction{}, 0, err
		}
		pos += 4
		operands = []Operand{OpEffectiveAddress(EADisplacement(d)), OpRegister(EAX)}

	default:
		return Instruction{}, 0, fmt.Errorf("%w: unhandled operand encoding", ErrInvalidOpCodeExtension)
	}

	ins := Instruction{Prefix: rule.PrefixMnemonic, Mnemonic: rule.Mnemonic, Operands: operands}
	return ins, pos, nil
}

// embeddedRegister recovers the register embedded in an O/OI rule's opcode
// byte: (byte - family base) mod 8 (§4.4).
func embeddedRegister(rule DecodeRule) (Register, error) {
	code := (rule.Opcode[0] - rule.BaseOpcode) % 8
	return RegisterFromCode(code)
}

// implicitAccumulatorFor returns the register an implicit-accumulator I-form
// opcode implies, keyed by the immediate's width.
func implicitAccumulatorFor(ext Extension) Register {
	switch ext {
	case ExtIB:
		return AL
	case ExtIW:
		return AX
	default:
		return EAX
	}
}

func readImmediateAt(bytes []byte, at int, ext Extension) (Immediate, int, error) {
	width := ext.ImmediateWidth()
	value, err := readImmediate(bytes, at, width)
	if err != nil {
		return Immediate{}, 0, err
	}
	return value, width, nil
}

func relKindForWidth(width int) DisplacementKind {
	switch width {
	case 1:
		return DispRel8
	case 2:
		return DispRel16
	default:
		return DispRel32
	}
}

// buildEffectiveAddress assembles the symbolic memory operand from a parsed
// ModR/M, optional SIB, and displacement, per Intel Table 2-2/2-3 (§4.3).
func buildEffectiveAddress(m ModRM, sib *Sib, disp Displacement) (EffectiveAddress, error) {
	if m.Mod == ModRegister {
		return EARegister(m.Rm), nil
	}

	if sib != nil {
		noIndex := sib.NoIndex()
		noBase := m.Mod == ModIndirect && sib.NoBaseAndDisp32(m.Mod)

		switch {
		case !noIndex && !noBase:
			return EAIndexBaseDisp(sib.Index, sib.Scale, sib.Base, disp), nil
		case noIndex && !noBase:
			return EABaseDisp(sib.Base, disp), nil
		case !noIndex && noBase:
			return EAIndexDisp(sib.Index, sib.Scale, disp), nil
		default:
			return EADisplacement(disp), nil
		}
	}

	if !m.PrecedesSib() {
		if m.Mod == ModIndirect {
			if m.Rm == EBP {
				return EADisplacement(disp), nil // [disp32], no base
			}
			return EABaseDisp(m.Rm, Displacement{}), nil // [base], no displacement
		}
		return EABaseDisp(m.Rm, disp), nil // [base+disp8] or [base+disp32]
	}

	return EffectiveAddress{}, fmt.Errorf("%w: rm=ESP implies SIB but none was parsed", ErrInvalidModRM)
}

// IsInvariantViolation reports whether err indicates the one class of fatal,
// surfaced error this decoder ever produces (§7).
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
