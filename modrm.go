package disasm

import "fmt"

// ModBits is the 2-bit MOD field of a ModR/M byte.
type ModBits int

const (
	ModIndirect      ModBits = iota // 00 - indirect, no displacement (two sub-cases, see EffectiveAddress builder)
	ModIndirectDisp8                // 01 - indirect + disp8
	ModIndirectDisp32                // 10 - indirect + disp32
	ModRegister                      // 11 - direct register
)

// ModRM is the decoded form of a ModR/M byte: (mod, reg, rm).
type ModRM struct {
	Mod ModBits
	Reg Register
	Rm  Register
}

// ParseModRM splits a raw ModR/M byte and validates it against the rule's
// constraints (§4.2): a /digit extension, if present, must match reg;
// a permitted-mod set, if present, must contain mod.
func ParseModRM(b byte, rule DecodeRule) (ModRM, error) {
	mod := ModBits((b >> 6) & 0x3)
	regCode := (b >> 3) & 0x7
	rmCode := b & 0x7

	reg, err := RegisterFromCode(regCode)
	if err != nil {
		return ModRM{}, err
	}
	rm, err := RegisterFromCode(rmCode)
	if err != nil {
		return ModRM{}, err
	}

	if digit, ok := rule.Extensions.SDigit(); ok {
		if int(regCode) != digit {
			return ModRM{}, fmt.Errorf("%w: reg field %d does not match required /%d", ErrInvalidOpCodeExtension, regCode, digit)
		}
	}

	if rule.PermittedMods != nil {
		if !modInSet(mod, rule.PermittedMods) {
			return ModRM{}, fmt.Errorf("%w: mod %d not in permitted set", ErrInvalidAddressingMode, mod)
		}
	}

	return ModRM{Mod: mod, Reg: reg, Rm: rm}, nil
}

func modInSet(mod ModBits, set []ModBits) bool {
	for _, m := range set {
		if m == mod {
			return true
		}
	}
	return false
}

// PrecedesSib reports whether this ModR/M implies a following SIB byte:
// rm=ESP with mod != 11 (§3 invariant).
func (m ModRM) PrecedesSib() bool {
	return m.Rm == ESP && m.Mod != ModRegister
}

// Sib is the decoded form of a SIB byte: (scale, index, base).
type Sib struct {
	Scale Scale
	Index Register
	Base  Register
}

// ParseSib splits a raw SIB byte unconditionally; semantic interpretation of
// a missing index or base is deferred to the effective-address builder.
func ParseSib(b byte) (Sib, error) {
	scale, err := ScaleFromCode((b >> 6) & 0x3)
	if err != nil {
		return Sib{}, err
	}
	index, err := RegisterFromCode((b >> 3) & 0x7)
	if err != nil {
		return Sib{}, err
	}
	base, err := RegisterFromCode(b & 0x7)
	if err != nil {
		return Sib{}, err
	}
	return Sib{Scale: scale, Index: index, Base: base}, nil
}

// NoIndex reports the SIB "no index" convention: index=ESP.
func (s Sib) NoIndex() bool {
	return s.Index == ESP
}

// NoBaseAndDisp32 reports the SIB "no base, disp32 follows" convention,
// which only applies when mod=00 (§4.3.a).
func (s Sib) NoBaseAndDisp32(mod ModBits) bool {
	return s.Base == EBP && mod == ModIndirect
}

// bytesRemaining computes, per Intel Table 2-2, how many displacement bytes
// follow the ModR/M (and SIB, if any) — mirroring
// original_source/src/instruction.rs's ModRM::bytes_remaining.
func bytesRemaining(m ModRM, sib *Sib) int {
	switch m.Mod {
	case ModIndirect:
		if m.Rm == EBP {
			return 4 // [disp32]
		}
		if m.PrecedesSib() {
			if sib != nil && sib.NoBaseAndDisp32(m.Mod) {
				return 4
			}
			return 0
		}
		return 0
	case ModIndirectDisp8:
		return 1
	case ModIndirectDisp32:
		return 4
	case ModRegister:
		return 0
	default:
		return 0
	}
}
