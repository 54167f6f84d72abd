package disasm_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	disasm "github.com/defghij/disassembler"
)

var _ = Describe("Listing", func() {
	It("pads the byte column to the widest decoded instruction in the stream", func() {
		listing := disasm.NewListing(10)
		listing.Add(disasm.Line{Kind: disasm.PayloadDecoded, Bytes: []byte{0xC3},
			Instruction: disasm.Instruction{Mnemonic: "retn"}})
		listing.Add(disasm.Line{Address: 1, Kind: disasm.PayloadDecoded, Bytes: []byte{0x68, 0xDD, 0xCC, 0xBB, 0xAA},
			Instruction: disasm.Instruction{Mnemonic: "push", Operands: []disasm.Operand{
				disasm.OpImmediate(disasm.Immediate{Kind: disasm.Imm32, Bytes: []byte{0xDD, 0xCC, 0xBB, 0xAA}}),
			}}})

		// column width = max(decoded length)*3+4 = 5*3+4 = 19
		rendered := listing.String()
		Expect(rendered).To(ContainSubstring("00000000: C3" + strings.Repeat(" ", 19-2) + "retn"))
		Expect(rendered).To(ContainSubstring("00000001: 68 DD CC BB AA" + strings.Repeat(" ", 19-14) + "push 0xAABBCCDD"))
	})

	It("treats an out-of-range label as a silent no-op", func() {
		listing := disasm.NewListing(4)
		listing.Add(disasm.Line{Kind: disasm.PayloadDecoded, Bytes: []byte{0xC3}, Instruction: disasm.Instruction{Mnemonic: "retn"}})
		Expect(func() { listing.Label(100) }).NotTo(Panic())
		line, ok := listing.LineAt(0)
		Expect(ok).To(BeTrue())
		Expect(line.Labeled).To(BeFalse())
	})

	It("renders unknown bytes as db 0x<HH>", func() {
		listing, err := disasm.Sweep([]byte{0x0F, 0x02}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(listing.String()).To(ContainSubstring("db 0x"))
	})
})
