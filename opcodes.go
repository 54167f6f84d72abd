package disasm

import "github.com/retroenv/retrogolib/set"

// OpEn identifies the shape of an instruction's operand list and where each
// operand's bits live in the byte stream (§4.4 / GLOSSARY).
type OpEn int

const (
	OpZO  OpEn = iota // no operands
	OpO               // register embedded in opcode
	OpI               // single immediate (possibly implicit accumulator)
	OpD               // single PC-relative displacement
	OpOI              // O + I
	OpM               // single memory/register operand from ModR/M
	OpM1              // M + implicit immediate 1
	OpMI              // M + immediate
	OpMR              // memory from ModR/M, register from ModR/M.reg
	OpRM              // register from ModR/M.reg, memory from ModR/M
	OpRMI             // RM + immediate
	OpFD              // memory offset (moffs) as source, implicit EAX as destination
	OpTD              // implicit EAX as source, memory offset (moffs) as destination
)

// RequiresModRM reports whether this encoding needs a ModR/M byte parsed.
func (e OpEn) RequiresModRM() bool {
	switch e {
	case OpM, OpM1, OpMI, OpMR, OpRM, OpRMI:
		return true
	default:
		return false
	}
}

// DecodeRule is one candidate interpretation of a leading opcode byte: a
// mnemonic, optional legacy prefix, one or two opcode bytes, an optional
// extension set, an operand-encoding kind, and an optional permitted
// ModR/M mod-field set.
type DecodeRule struct {
	Mnemonic       string
	PrefixMnemonic string // e.g. "repne"; empty when the rule has no prefix
	HasPrefix      bool
	PrefixByte     byte
	Opcode         []byte // 1 or 2 bytes
	BaseOpcode     byte   // for O/OI: the family's lowest byte, used to recover the embedded register
	Extensions     ExtSet
	Encoding       OpEn
	PermittedMods  []ModBits // nil means unconstrained
}

// LeadingByte is the byte the opcode table is keyed on: the prefix byte if
// one is present, else the first opcode byte.
func (r DecodeRule) LeadingByte() byte {
	if r.HasPrefix {
		return r.PrefixByte
	}
	return r.Opcode[0]
}

// FullBytes is the complete fixed byte sequence (prefix + opcode) that must
// match the input window for this rule to be a candidate at all.
func (r DecodeRule) FullBytes() []byte {
	if !r.HasPrefix {
		return r.Opcode
	}
	full := make([]byte, 0, 1+len(r.Opcode))
	full = append(full, r.PrefixByte)
	full = append(full, r.Opcode...)
	return full
}

// implicitAccumulatorOpcodes are the OpEn=I opcodes whose first operand is
// an implicit AL/AX/EAX rather than a bare immediate (§4.4).
var implicitAccumulatorOpcodes = set.NewFromSlice([]byte{
	0x05, 0x0D, 0x15, 0x1D,
	0x25, 0x2D, 0x35, 0x3D,
	0xA9,
})

// labelMakingSet is the set of mnemonics whose Label(target) operand the
// sweep driver marks in the listing (§4.7, §9 open question), in the same
// shape retrogolib's BranchingInstructions set serves for its own disassembler.
var labelMakingSet = set.NewFromSlice([]string{"call", "jmp", "jz", "jnz", "jne"})

func mi(mnemonic string, opcode byte, digit int, immExt Extension) DecodeRule {
	return DecodeRule{
		Mnemonic:      mnemonic,
		Opcode:        []byte{opcode},
		Extensions:    ExtSet{ExtS0 + Extension(digit), immExt},
		Encoding:      OpMI,
		PermittedMods: nil,
	}
}

func m(mnemonic string, opcode byte, digit int) DecodeRule {
	return DecodeRule{
		Mnemonic:   mnemonic,
		Opcode:     []byte{opcode},
		Extensions: ExtSet{ExtS0 + Extension(digit)},
		Encoding:   OpM,
	}
}

func m1(mnemonic string, opcode byte, digit int) DecodeRule {
	return DecodeRule{
		Mnemonic:   mnemonic,
		Opcode:     []byte{opcode},
		Extensions: ExtSet{ExtS0 + Extension(digit)},
		Encoding:   OpM1,
	}
}

func mr(mnemonic string, opcode byte) DecodeRule {
	return DecodeRule{Mnemonic: mnemonic, Opcode: []byte{opcode}, Encoding: OpMR}
}

func rm(mnemonic string, opcode byte) DecodeRule {
	return DecodeRule{Mnemonic: mnemonic, Opcode: []byte{opcode}, Encoding: OpRM}
}

func zo(mnemonic string, opcode byte) DecodeRule {
	return DecodeRule{Mnemonic: mnemonic, Opcode: []byte{opcode}, Encoding: OpZO}
}

func imm(mnemonic string, opcode byte, ext Extension) DecodeRule {
	return DecodeRule{Mnemonic: mnemonic, Opcode: []byte{opcode}, Extensions: ExtSet{ext}, Encoding: OpI}
}

func d(mnemonic string, opcode byte, ext Extension) DecodeRule {
	return DecodeRule{Mnemonic: mnemonic, Opcode: []byte{opcode}, Extensions: ExtSet{ext}, Encoding: OpD}
}

func d2(mnemonic string, op0, op1 byte, ext Extension) DecodeRule {
	return DecodeRule{Mnemonic: mnemonic, Opcode: []byte{op0, op1}, Extensions: ExtSet{ext}, Encoding: OpD}
}

// oFamily returns the eight O-encoded rules for a register-in-opcode family
// (e.g. INC/DEC/PUSH/POP), one per byte base..base+7.
func oFamily(mnemonic string, base byte) []DecodeRule {
	rules := make([]DecodeRule, 0, 8)
	for i := byte(0); i < 8; i++ {
		rules = append(rules, DecodeRule{
			Mnemonic:   mnemonic,
			Opcode:     []byte{base + i},
			BaseOpcode: base,
			Extensions: ExtSet{ExtRD},
			Encoding:   OpO,
		})
	}
	return rules
}

// oiFamily is oFamily for OI encoding (register + trailing immediate), used
// by MOV r32, imm32.
func oiFamily(mnemonic string, base byte, immExt Extension) []DecodeRule {
	rules := make([]DecodeRule, 0, 8)
	for i := byte(0); i < 8; i++ {
		rules = append(rules, DecodeRule{
			Mnemonic:   mnemonic,
			Opcode:     []byte{base + i},
			BaseOpcode: base,
			Extensions: ExtSet{ExtRD, immExt},
			Encoding:   OpOI,
		})
	}
	return rules
}

// OpCodes is the full, flat, ordered opcode table. Multiple rules sharing a
// leading byte are listed in the order the driver must try them (§4.1);
// ordering only matters where a later rule's /digit constraint disambiguates
// from an earlier one's.
var OpCodes []DecodeRule

func init() {
	OpCodes = []DecodeRule{}

	// ADD
	OpCodes = append(OpCodes, mr("add", 0x01), rm("add", 0x03), imm("add", 0x05, ExtID))
	// AND
	OpCodes = append(OpCodes, mr("and", 0x21), rm("and", 0x23), imm("and", 0x25, ExtID))
	// OR
	OpCodes = append(OpCodes, mr("or", 0x09), rm("or", 0x0B), imm("or", 0x0D, ExtID))
	// SUB (0x2D = SUB EAX, imm32 -- per Intel manual, fixing the source's
	// 0x2D/0x3D confusion noted in spec §9)
	OpCodes = append(OpCodes, mr("sub", 0x29), rm("sub", 0x2B), imm("sub", 0x2D, ExtID))
	// XOR
	OpCodes = append(OpCodes, mr("xor", 0x31), rm("xor", 0x33), imm("xor", 0x35, ExtID))
	// CMP (0x3D = CMP EAX, imm32)
	OpCodes = append(OpCodes, mr("cmp", 0x39), rm("cmp", 0x3B), imm("cmp", 0x3D, ExtID))
	// TEST
	OpCodes = append(OpCodes, mr("test", 0x85), imm("test", 0xA9, ExtID))

	// /digit groups on 0x81 (r/m32, imm32) and 0x83 (r/m32, imm8 sign-extended)
	OpCodes = append(OpCodes,
		mi("add", 0x81, 0, ExtID), mi("or", 0x81, 1, ExtID), mi("and", 0x81, 4, ExtID),
		mi("sub", 0x81, 5, ExtID), mi("xor", 0x81, 6, ExtID), mi("cmp", 0x81, 7, ExtID),
	)
	OpCodes = append(OpCodes,
		mi("add", 0x83, 0, ExtIB), mi("or", 0x83, 1, ExtIB), mi("and", 0x83, 4, ExtIB),
		mi("sub", 0x83, 5, ExtIB), mi("xor", 0x83, 6, ExtIB), mi("cmp", 0x83, 7, ExtIB),
	)

	// INC/DEC: register-in-opcode forms, then ModR/M forms disambiguated by /digit.
	OpCodes = append(OpCodes, oFamily("inc", 0x40)...)
	OpCodes = append(OpCodes, oFamily("dec", 0x48)...)
	OpCodes = append(OpCodes, m("inc", 0xFF, 0), m("dec", 0xFF, 1), m("call", 0xFF, 2), m("jmp", 0xFF, 4), m("push", 0xFF, 6))

	// PUSH/POP: register-in-opcode, plus immediate and ModR/M forms.
	OpCodes = append(OpCodes, oFamily("push", 0x50)...)
	OpCodes = append(OpCodes, oFamily("pop", 0x58)...)
	OpCodes = append(OpCodes, imm("push", 0x68, ExtID), imm("push", 0x6A, ExtIB))
	OpCodes = append(OpCodes, m("pop", 0x8F, 0))

	// MOV
	OpCodes = append(OpCodes, mr("mov", 0x89), rm("mov", 0x8B))
	OpCodes = append(OpCodes, oiFamily("mov", 0xB8, ExtID)...)
	OpCodes = append(OpCodes, mi("mov", 0xC7, 0, ExtID))
	OpCodes = append(OpCodes,
		DecodeRule{Mnemonic: "mov", Opcode: []byte{0xA1}, Encoding: OpFD},
		DecodeRule{Mnemonic: "mov", Opcode: []byte{0xA3}, Encoding: OpTD},
	)

	// LEA
	OpCodes = append(OpCodes, rm("lea", 0x8D))

	// NOT/NEG/IDIV etc. share 0xF7's /digit group; only the ones this
	// subset names are wired (NOT, TEST, IDIV).
	OpCodes = append(OpCodes, mi("test", 0xF7, 0, ExtID), m("not", 0xF7, 2), m("idiv", 0xF7, 7))

	// Shift-by-one forms (SAL is the same encoding/digit as SHL).
	OpCodes = append(OpCodes, m1("shl", 0xD1, 4), m1("sal", 0xD1, 4), m1("shr", 0xD1, 5), m1("sar", 0xD1, 7))

	// Control flow.
	OpCodes = append(OpCodes, d("jz", 0x74, ExtCB), d("jnz", 0x75, ExtCB))
	OpCodes = append(OpCodes, d("jmp", 0xEB, ExtCB), d("jmp", 0xE9, ExtCD))
	OpCodes = append(OpCodes, d("call", 0xE8, ExtCD))
	OpCodes = append(OpCodes, d2("jz", 0x0F, 0x84, ExtCD), d2("jnz", 0x0F, 0x85, ExtCD))
	OpCodes = append(OpCodes, DecodeRule{Mnemonic: "clflush", Opcode: []byte{0x0F, 0xAE}, Extensions: ExtSet{ExtS7}, Encoding: OpM})

	// Returns. "retn"/"retf" spellings are preserved verbatim from the
	// source table this spec was distilled from (§9).
	OpCodes = append(OpCodes, zo("retn", 0xC3), imm("retn", 0xC2, ExtIW))
	OpCodes = append(OpCodes, zo("retf", 0xCB), imm("retf", 0xCA, ExtIW))

	// String / misc zero-operand forms.
	OpCodes = append(OpCodes, zo("movsd", 0xA5), zo("nop", 0x90), zo("cdq", 0x99), zo("int3", 0xCC))
	OpCodes = append(OpCodes, imm("int", 0xCD, ExtIB))
	OpCodes = append(OpCodes, DecodeRule{
		Mnemonic: "cmpsd", PrefixMnemonic: "repne", HasPrefix: true, PrefixByte: 0xF2,
		Opcode: []byte{0xA7}, Encoding: OpZO,
	})

	// IMUL with an immediate constant third operand.
	OpCodes = append(OpCodes, DecodeRule{Mnemonic: "imul", Opcode: []byte{0x69}, Extensions: ExtSet{ExtID}, Encoding: OpRMI})
	OpCodes = append(OpCodes, DecodeRule{Mnemonic: "imul", Opcode: []byte{0x6B}, Extensions: ExtSet{ExtIB}, Encoding: OpRMI})

	OpCodesMap = make(map[byte][]DecodeRule)
	for _, rule := range OpCodes {
		key := rule.LeadingByte()
		OpCodesMap[key] = append(OpCodesMap[key], rule)
	}
}

// OpCodesMap is the leading-byte-keyed lookup the sweep driver consults;
// built once in init() and never mutated afterward (§5, §9).
var OpCodesMap map[byte][]DecodeRule
