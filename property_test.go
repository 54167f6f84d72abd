package disasm_test

import (
	"testing"
	"testing/quick"

	disasm "github.com/defghij/disassembler"
)

// TestSweepConsumesExactlyStreamLength exercises invariant 1 from the
// testable-properties list: the sum of decoded.length over emitted lines
// always equals the stream length.
func TestSweepConsumesExactlyStreamLength(t *testing.T) {
	f := func(bytes []byte) bool {
		listing, err := disasm.Sweep(bytes, nil)
		if err != nil {
			return true // an aborted sweep falls outside this invariant
		}
		total := 0
		for _, ln := range listing.Lines() {
			if ln.Kind == disasm.PayloadUnknown {
				total++
			} else {
				total += len(ln.Bytes)
			}
		}
		return total == len(bytes)
	}
	if err := quick.Check(f, &quick.Config{MaxLen: 64}); err != nil {
		t.Error(err)
	}
}

// TestSweepLinesDoNotOverlap exercises invariant 2: for a decoded line at
// offset A with length L, no other line occupies an address in (A, A+L).
func TestSweepLinesDoNotOverlap(t *testing.T) {
	f := func(bytes []byte) bool {
		listing, err := disasm.Sweep(bytes, nil)
		if err != nil {
			return true
		}
		lines := listing.Lines()
		for i := 0; i < len(lines); i++ {
			a := int(lines[i].Address)
			l := 1
			if lines[i].Kind == disasm.PayloadDecoded {
				l = len(lines[i].Bytes)
			}
			for j := 0; j < len(lines); j++ {
				if i == j {
					continue
				}
				b := int(lines[j].Address)
				if b > a && b < a+l {
					return false
				}
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxLen: 64}); err != nil {
		t.Error(err)
	}
}

// TestSweepLabelTargetsAreMarkedOrOutOfRange exercises invariant 3: every
// label target the driver emits is either marked labeled, or lies outside
// [0, N).
func TestSweepLabelTargetsAreMarkedOrOutOfRange(t *testing.T) {
	f := func(bytes []byte) bool {
		listing, err := disasm.Sweep(bytes, nil)
		if err != nil {
			return true
		}
		for _, ln := range listing.Lines() {
			if ln.Kind != disasm.PayloadDecoded {
				continue
			}
			target, ok := ln.Instruction.LabelOperand()
			if !ok {
				continue
			}
			if int(target) < 0 || int(target) >= len(bytes) {
				continue // out of range: tolerated per §4.7
			}
			line, found := listing.LineAt(target)
			if !found || !line.Labeled {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxLen: 64}); err != nil {
		t.Error(err)
	}
}

// TestSweepNeverPanics exercises invariant 6: random-bytes fuzz never panics.
func TestSweepNeverPanics(t *testing.T) {
	f := func(bytes []byte) bool {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Sweep panicked on %v: %v", bytes, r)
			}
		}()
		_, _ = disasm.Sweep(bytes, nil)
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxLen: 256}); err != nil {
		t.Error(err)
	}
}

// TestSweepIsIdempotent exercises invariant 4: decoding the same buffer
// twice yields identical listings.
func TestSweepIsIdempotent(t *testing.T) {
	f := func(bytes []byte) bool {
		a, errA := disasm.Sweep(bytes, nil)
		b, errB := disasm.Sweep(bytes, nil)
		if (errA == nil) != (errB == nil) {
			return false
		}
		if errA != nil {
			return true
		}
		return a.String() == b.String()
	}
	if err := quick.Check(f, &quick.Config{MaxLen: 64}); err != nil {
		t.Error(err)
	}
}
