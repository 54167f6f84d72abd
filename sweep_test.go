package disasm_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	disasm "github.com/defghij/disassembler"
)

var _ = Describe("Sweep", func() {
	// Concrete scenarios from the testable-properties table: each is a
	// single decoded line at offset 0.
	DescribeTable("single-instruction byte sequences",
		func(bytes []byte, expected string) {
			listing, err := disasm.Sweep(bytes, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(listing.String()).To(Equal(expected))
		},
		Entry("retn", []byte{0xC3}, "00000000: C3     retn"),
		Entry("inc eax", []byte{0x40}, "00000000: 40     inc eax"),
		Entry("push imm32", []byte{0x68, 0xDD, 0xCC, 0xBB, 0xAA},
			"00000000: 68 DD CC BB AA     push 0xAABBCCDD"),
		Entry("jz rel8", []byte{0x74, 0x0F}, "00000000: 74 0F     jz offset_00000011h"),
		Entry("call rel32", []byte{0xE8, 0x06, 0x00, 0x00, 0x00},
			"00000000: E8 06 00 00 00     call offset_0000000Bh"),
		Entry("inc [index+base+disp32]", []byte{0xFF, 0x84, 0x03, 0xDD, 0xCC, 0xBB, 0xAA},
			"00000000: FF 84 03 DD CC BB AA     inc [ eax + ebx + 0xAABBCCDD ]"),
		Entry("mov [index*scale+base+disp32], reg", []byte{0x89, 0xBC, 0xB3, 0xDD, 0xCC, 0xBB, 0xAA},
			"00000000: 89 BC B3 DD CC BB AA     mov [ esi * 4 + ebx + 0xAABBCCDD ], edi"),
	)

	It("emits a labeled line preceding a forward branch target", func() {
		// 74 00  -> jz +0, lands exactly on the following add's offset (2)
		// 01 D1  -> add ecx, edx
		bytes := []byte{0x74, 0x00, 0x01, 0xD1}
		listing, err := disasm.Sweep(bytes, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(listing.String()).To(Equal(
			"00000000: 74 00     jz offset_00000002h\noffset_00000002h:\n00000002: 01 D1     add ecx, edx",
		))
	})

	It("falls back to an unknown-byte marker when no rule matches", func() {
		// 0x0F alone (no valid second byte for any wired two-byte rule)
		bytes := []byte{0x0F, 0x01}
		listing, err := disasm.Sweep(bytes, nil)
		Expect(err).NotTo(HaveOccurred())
		lines := listing.Lines()
		Expect(lines).To(HaveLen(2))
		Expect(lines[0].Kind).To(Equal(disasm.PayloadUnknown))
	})

	It("consumes exactly stream-length bytes across unknown and decoded lines", func() {
		bytes := []byte{0x90, 0xFF, 0xFF, 0xC3} // nop, unknown (FF /7 has no rule), inc ebx (FF C3)
		listing, err := disasm.Sweep(bytes, nil)
		Expect(err).NotTo(HaveOccurred())
		total := 0
		for _, ln := range listing.Lines() {
			if ln.Kind == disasm.PayloadUnknown {
				total++
			} else {
				total += len(ln.Bytes)
			}
		}
		Expect(total).To(Equal(len(bytes)))
	})

	It("is a pure function: two sweeps of the same buffer are identical", func() {
		bytes := []byte{0x01, 0xD1, 0x90, 0xE8, 0x00, 0x00, 0x00, 0x00}
		a, errA := disasm.Sweep(bytes, nil)
		Expect(errA).NotTo(HaveOccurred())
		b, errB := disasm.Sweep(bytes, nil)
		Expect(errB).NotTo(HaveOccurred())
		Expect(a.String()).To(Equal(b.String()))
	})

	It("supports concurrent independent sweeps over the same buffer", func() {
		bytes := []byte{0x01, 0xD1, 0x90, 0xC3, 0x40, 0x68, 0xDD, 0xCC, 0xBB, 0xAA}
		const n = 8
		results := make([]string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				listing, err := disasm.Sweep(bytes, nil)
				Expect(err).NotTo(HaveOccurred())
				results[i] = listing.String()
			}(i)
		}
		wg.Wait()
		for i := 1; i < n; i++ {
			Expect(results[i]).To(Equal(results[0]))
		}
	})

	It("never panics on arbitrary bytes and never accounts for more bytes than the buffer holds", func() {
		buffers := [][]byte{
			{0x00, 0x01, 0x02, 0x03, 0x04, 0x05},
			{0xFF, 0xFE, 0xFD, 0xFC},
			{0x81, 0x00},
			{},
		}
		for _, buf := range buffers {
			listing, err := disasm.Sweep(buf, nil)
			Expect(err).NotTo(HaveOccurred())
			total := 0
			for _, ln := range listing.Lines() {
				if ln.Kind == disasm.PayloadUnknown {
					total++
				} else {
					total += len(ln.Bytes)
				}
			}
			Expect(total).To(BeNumerically("<=", len(buf)))
		}
	})
})
