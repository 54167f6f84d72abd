package disasm

import (
	"fmt"
	"strings"
)

// LinePayloadKind tags whether a Line carries a decoded instruction or an
// unknown-byte placeholder.
type LinePayloadKind int

const (
	PayloadDecoded LinePayloadKind = iota
	PayloadUnknown
)

// Line is one populated entry in a Listing: an address, whether a label was
// attached to it, and its payload.
type Line struct {
	Address Offset
	Labeled bool

	Kind        LinePayloadKind
	Bytes       []byte      // raw bytes this line consumed
	Instruction Instruction // valid when Kind == PayloadDecoded
	UnknownByte byte        // valid when Kind == PayloadUnknown
}

func (l Line) length() int {
	if l.Kind == PayloadUnknown {
		return 1
	}
	return len(l.Bytes)
}

// Listing is a sparse, offset-indexed array of Lines, plus a write cursor
// and the byte-column width used for alignment (§4.8). It is the sole owner
// of every Line it holds; cross-line references are Offsets, never Go
// pointers (§3 Lifecycle).
type Listing struct {
	lines     []*Line // len == stream length; nil entries are unpopulated
	cursor    Offset
	maxWidth  int // widest decoded byte-length seen so far
}

// NewListing allocates a Listing sized to a stream of streamLen bytes.
func NewListing(streamLen int) *Listing {
	return &Listing{lines: make([]*Line, streamLen)}
}

// Add writes a line at the current cursor, advances the cursor by the
// line's length, and updates the column-width tracker.
func (l *Listing) Add(line Line) {
	idx := int(l.cursor)
	if idx >= 0 && idx < len(l.lines) {
		stored := line
		l.lines[idx] = &stored
	}
	n := line.length()
	if n > l.maxWidth {
		l.maxWidth = n
	}
	l.cursor += Offset(n)
}

// Label marks the line at offset as labeled. Out-of-range offsets are a
// silent no-op (§4.8) — a caller that emitted an out-of-range branch target
// has already chosen to tolerate it as a soft warning (§4.7).
func (l *Listing) Label(offset Offset) {
	idx := int(offset)
	if idx < 0 || idx >= len(l.lines) {
		return
	}
	if l.lines[idx] == nil {
		return
	}
	l.lines[idx].Labeled = true
}

// LineAt returns the line stored at offset, if any.
func (l *Listing) LineAt(offset Offset) (Line, bool) {
	idx := int(offset)
	if idx < 0 || idx >= len(l.lines) {
		return Line{}, false
	}
	if l.lines[idx] == nil {
		return Line{}, false
	}
	return *l.lines[idx], true
}

// Lines returns every populated line in address order.
func (l *Listing) Lines() []Line {
	out := make([]Line, 0, len(l.lines))
	for _, ln := range l.lines {
		if ln != nil {
			out = append(out, *ln)
		}
	}
	return out
}

// columnWidth is the byte column's padded width: max decoded length across
// the stream, times 3 (two hex digits + a space), plus a 4-space gutter.
func (l *Listing) columnWidth() int {
	return l.maxWidth*3 + 4
}

// String renders the full listing per §6: a label line (when flagged)
// immediately before its instruction/unknown line, each data line reading
// "AAAAAAAA: HH HH ...<pad>  mnemonic op, op".
func (l *Listing) String() string {
	var b strings.Builder
	width := l.columnWidth()
	first := true
	for _, ln := range l.Lines() {
		if !first {
			b.WriteByte('\n')
		}
		first = false
		if ln.Labeled {
			fmt.Fprintf(&b, "%s:\n", ln.Address.String())
		}
		b.WriteString(ln.renderDataLine(width))
	}
	return b.String()
}

func (l Line) renderDataLine(width int) string {
	var hex strings.Builder
	for i, by := range l.rawBytes() {
		if i > 0 {
			hex.WriteByte(' ')
		}
		fmt.Fprintf(&hex, "%02X", by)
	}
	padded := hex.String()
	for len(padded) < width {
		padded += " "
	}
	return fmt.Sprintf("%08X: %s%s", uint32(l.Address), padded, l.body())
}

func (l Line) rawBytes() []byte {
	if l.Kind == PayloadUnknown {
		return []byte{l.UnknownByte}
	}
	return l.Bytes
}

func (l Line) body() string {
	if l.Kind == PayloadUnknown {
		return fmt.Sprintf("db 0x%02X", l.UnknownByte)
	}
	return l.Instruction.String()
}
