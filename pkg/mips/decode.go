package mips

import "fmt"

func (w Word) op() uint32     { return uint32(w) >> 26 }
func (w Word) rs() Register   { return Register(uint32(w)>>21&31) }
func (w Word) rt() Register   { return Register(uint32(w)>>16&31) }
func (w Word) imm() uint16    { return uint16(w) }
func (w Word) simm() int16    { return int16(uint16(w)) }
func (w Word) target() uint32 { return (uint32(w) & targetMask) << 2 }

// DecodeJal returns the target of a jal word. The returned address carries
// only the 28 bits the instruction encodes.
func DecodeJal(w Word) (uint32, bool) {
	if w.op() != opJal {
		return 0, false
	}
	return w.target(), true
}

// DecodeLoadImmediate recognises the sequences produced by Li and Li32.
func DecodeLoadImmediate(words []Word) (Register, uint32, bool) {
	switch len(words) {
	case 1:
		w := words[0]
		if w.op() == opOri && w.rs() == Zero {
			return w.rt(), uint32(w.imm()), true
		}
	case 2:
		hi, lo := words[0], words[1]
		if hi.op() == opLui && hi.rs() == Zero &&
			lo.op() == opOri && lo.rs() == hi.rt() && lo.rt() == hi.rt() {
			return hi.rt(), uint32(hi.imm())<<16 | uint32(lo.imm()), true
		}
	}
	return 0, 0, false
}

// Format renders w in assembler syntax. Words outside the supported subset
// are shown as .word directives.
func Format(w Word) string {
	switch {
	case w == Nop:
		return "nop"
	case w.op() == opSpecial && uint32(w)&0x3f == fnJr && uint32(w)&0x001fffc0 == 0:
		return fmt.Sprintf("jr %s", w.rs())
	case w.op() == opJ:
		return fmt.Sprintf("j 0x%08x", w.target())
	case w.op() == opJal:
		return fmt.Sprintf("jal 0x%08x", w.target())
	case w.op() == opLui:
		return fmt.Sprintf("lui %s, 0x%04x", w.rt(), w.imm())
	case w.op() == opOri:
		return fmt.Sprintf("ori %s, %s, 0x%04x", w.rt(), w.rs(), w.imm())
	case w.op() == opAddiu:
		return fmt.Sprintf("addiu %s, %s, %d", w.rt(), w.rs(), w.simm())
	case w.op() == opLw:
		return fmt.Sprintf("lw %s, %d(%s)", w.rt(), w.simm(), w.rs())
	case w.op() == opSw:
		return fmt.Sprintf("sw %s, %d(%s)", w.rt(), w.simm(), w.rs())
	}
	return fmt.Sprintf(".word 0x%08x", uint32(w))
}

// Disassemble formats a run of words starting at addr, one per line.
func Disassemble(addr uint32, words []Word) []string {
	lines := make([]string, len(words))
	for i, w := range words {
		lines[i] = fmt.Sprintf("%08x: %08x  %s", addr+uint32(4*i), uint32(w), Format(w))
	}
	return lines
}
