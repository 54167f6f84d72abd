package disasm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	disasm "github.com/defghij/disassembler"
)

var _ = Describe("Decode", func() {
	It("decodes a zero-operand instruction (retn)", func() {
		rule := disasm.DecodeRule{Mnemonic: "retn", Opcode: []byte{0xC3}, Encoding: disasm.OpZO}
		ins, length, err := disasm.Decode(0, []byte{0xC3}, rule)
		Expect(err).NotTo(HaveOccurred())
		Expect(length).To(Equal(1))
		Expect(ins.Mnemonic).To(Equal("retn"))
		Expect(ins.Operands).To(BeEmpty())
	})

	It("rejects a mismatched opcode as UnknownOpcode-like (decode-local)", func() {
		rule := disasm.DecodeRule{Mnemonic: "retn", Opcode: []byte{0xC3}, Encoding: disasm.OpZO}
		_, _, err := disasm.Decode(0, []byte{0xC2, 0x00, 0x00}, rule)
		Expect(err).To(HaveOccurred())
		Expect(disasm.IsInvariantViolation(err)).To(BeFalse())
	})

	It("decodes a register-direct ModR/M operand (mod=11) without brackets", func() {
		// FF /0, ModR/M=0xC3 -> mod=11, reg=0 (inc), rm=011 (ebx)
		rule := disasm.DecodeRule{Mnemonic: "inc", Opcode: []byte{0xFF}, Encoding: disasm.OpM, Extensions: disasm.ExtSet{disasm.ExtS0}}
		ins, length, err := disasm.Decode(0, []byte{0xFF, 0xC3}, rule)
		Expect(err).NotTo(HaveOccurred())
		Expect(length).To(Equal(2))
		Expect(ins.String()).To(Equal("inc ebx"))
	})

	It("rejects a ModR/M whose reg field does not match the required /digit", func() {
		rule := disasm.DecodeRule{Mnemonic: "inc", Opcode: []byte{0xFF}, Encoding: disasm.OpM, Extensions: disasm.ExtSet{disasm.ExtS0}}
		_, _, err := disasm.Decode(0, []byte{0xFF, 0xCB}, rule) // reg=001, not 0
		Expect(err).To(HaveOccurred())
	})

	It("computes a PC-relative call target as start + length + displacement", func() {
		rule := disasm.DecodeRule{Mnemonic: "call", Opcode: []byte{0xE8}, Encoding: disasm.OpD, Extensions: disasm.ExtSet{disasm.ExtCD}}
		ins, length, err := disasm.Decode(0, []byte{0xE8, 0x06, 0x00, 0x00, 0x00}, rule)
		Expect(err).NotTo(HaveOccurred())
		Expect(length).To(Equal(5))
		target, ok := ins.LabelOperand()
		Expect(ok).To(BeTrue())
		Expect(target).To(Equal(disasm.Offset(0x0B)))
	})

	It("renders a non-label-making Rel* operand as a raw absolute value", func() {
		// Fabricate a D-encoded rule outside the label-making set to
		// exercise the non-label rendering branch (§9 open question).
		rule := disasm.DecodeRule{Mnemonic: "loop", Opcode: []byte{0xE2}, Encoding: disasm.OpD, Extensions: disasm.ExtSet{disasm.ExtCB}}
		ins, _, err := disasm.Decode(0, []byte{0xE2, 0x05}, rule)
		Expect(err).NotTo(HaveOccurred())
		Expect(ins.String()).To(Equal("loop 0x5"))
	})

	It("reports an invariant violation distinctly from a decode-local rejection", func() {
		Expect(disasm.IsInvariantViolation(disasm.ErrInvariantViolation)).To(BeTrue())
		Expect(disasm.IsInvariantViolation(disasm.ErrInvalidModRM)).To(BeFalse())
	})
})
