package disasm

import (
	"fmt"
	"log/slog"
)

// Sweep walks bytes from offset 0, linearly, trying the opcode table's
// candidate rules in declaration order at each position, and returns the
// resulting Listing (§4.7). The returned error is non-nil only when a
// decode hits an internal invariant violation (§7); every other failure is
// absorbed into an Unknown line and the sweep continues.
//
// logger may be nil; when non-nil, rejected candidates are logged at Debug
// and invariant violations at Error, mirroring the level split a caller
// would configure for a verbose run.
func Sweep(bytes []byte, logger *slog.Logger) (*Listing, error) {
	listing := NewListing(len(bytes))
	pos := 0

	for pos < len(bytes) {
		leading := bytes[pos]
		rules, ok := OpCodesMap[leading]
		if !ok {
			listing.Add(Line{Address: Offset(pos), Kind: PayloadUnknown, UnknownByte: leading})
			pos++
			continue
		}

		decoded, length, instr, err := tryRules(Offset(pos), bytes[pos:], rules, logger)
		if err != nil {
			return listing, err
		}
		if !decoded {
			listing.Add(Line{Address: Offset(pos), Kind: PayloadUnknown, UnknownByte: leading})
			pos++
			continue
		}

		raw := make([]byte, length)
		copy(raw, bytes[pos:pos+length])
		listing.Add(Line{
			Address:     Offset(pos),
			Kind:        PayloadDecoded,
			Bytes:       raw,
			Instruction: instr,
		})

		if labelMakingSet.Contains(instr.Mnemonic) {
			if target, ok := instr.LabelOperand(); ok {
				if int(target) >= 0 && int(target) < len(bytes) {
					listing.Label(target)
				} else if logger != nil {
					logger.Debug("branch target out of sweep range, dropped", "target", target)
				}
			}
		}

		pos += length
	}

	return listing, nil
}

// tryRules attempts each candidate rule in order, returning the first
// successful decode. A decode-local rejection moves on to the next
// candidate; an invariant violation aborts immediately.
func tryRules(at Offset, window []byte, rules []DecodeRule, logger *slog.Logger) (decoded bool, length int, instr Instruction, err error) {
	for _, rule := range rules {
		ins, n, rerr := Decode(at, window, rule)
		if rerr == nil {
			return true, n, ins, nil
		}
		if IsInvariantViolation(rerr) {
			if logger != nil {
				logger.Error("invariant violation, sweep aborted", "offset", at, "mnemonic", rule.Mnemonic, "error", rerr)
			}
			return false, 0, Instruction{}, fmt.Errorf("sweep aborted at %s: %w", at, rerr)
		}
		if logger != nil {
			logger.Debug("candidate rule rejected", "offset", at, "mnemonic", rule.Mnemonic, "error", rerr)
		}
	}
	return false, 0, Instruction{}, nil
}
