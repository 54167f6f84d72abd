package disasm

import "strings"

// Instruction is a fully decoded instruction: an optional legacy prefix
// mnemonic piece, the instruction mnemonic, and its ordered operand list.
type Instruction struct {
	Prefix    string // e.g. "repne"; empty when absent
	Mnemonic  string
	Operands []Operand
}

func (ins Instruction) String() string {
	var b strings.Builder
	if ins.Prefix != "" {
		b.WriteString(ins.Prefix)
		b.WriteByte(' ')
	}
	b.WriteString(ins.Mnemonic)
	if len(ins.Operands) > 0 {
		b.WriteByte(' ')
		for i, op := range ins.Operands {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(op.String())
		}
	}
	return b.String()
}

// FullMnemonic returns "prefix mnemonic" (e.g. "repne cmpsd") or just
// "mnemonic" when there is no prefix. The label-making set is keyed on
// mnemonic alone, so the sweep driver tests Mnemonic, not this.
func (ins Instruction) FullMnemonic() string {
	if ins.Prefix == "" {
		return ins.Mnemonic
	}
	return ins.Prefix + " " + ins.Mnemonic
}

// LabelOperand returns the instruction's Label operand, if it carries one.
func (ins Instruction) LabelOperand() (Offset, bool) {
	for _, op := range ins.Operands {
		if op.Kind == OperandLabel {
			return op.Label, true
		}
	}
	return 0, false
}
