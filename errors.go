package disasm

import "errors"

// DecodeError values are sentinel errors, wrapped with fmt.Errorf context at
// the point of use. Decode-local errors are absorbed by the sweep driver
// (§4.7); ErrInvariantViolation is the only one that ever aborts a sweep.
var (
	ErrInvalidModRM                 = errors.New("invalid ModR/M byte")
	ErrInvalidSib                   = errors.New("invalid SIB byte")
	ErrInvalidOpCodeExtension       = errors.New("invalid opcode extension")
	ErrInvalidRegister              = errors.New("invalid register encoding")
	ErrInvalidDisplacementByteWidth = errors.New("invalid displacement byte width")
	ErrInvalidLength                = errors.New("invalid instruction length")
	ErrInvalidAddressingMode        = errors.New("invalid addressing mode")
	ErrUnknownOpcode                = errors.New("unknown opcode")

	// ErrInvariantViolation marks an internal invariant failure (e.g. a
	// register code outside 0..7) that should be statically impossible.
	// Unlike the other sentinels, this one is never absorbed: it aborts
	// the sweep and is surfaced to the caller.
	ErrInvariantViolation = errors.New("internal invariant violation")
)
