// Package mips encodes and decodes the handful of MIPS instructions needed
// to patch and extend code running on an emulated MIPS (R5900) CPU.
//
// All encoders are pure. A value that does not fit its instruction field is
// a programming error and panics.
package mips

import (
	"encoding/binary"
	"fmt"
)

// Word is one 32-bit instruction.
type Word uint32

// Register is a general purpose register number.
type Register uint8

const (
	Zero Register = iota
	AT
	V0
	V1
	A0
	A1
	A2
	A3
	T0
	T1
	T2
	T3
	T4
	T5
	T6
	T7
	S0
	S1
	S2
	S3
	S4
	S5
	S6
	S7
	T8
	T9
	K0
	K1
	GP
	SP
	FP
	RA
)

var registerNames = [...]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return fmt.Sprintf("$%d", uint8(r))
}

// ParseRegister accepts names with or without a leading '$'.
func ParseRegister(s string) (Register, error) {
	if len(s) > 0 && s[0] == '$' {
		s = s[1:]
	}
	for i, name := range registerNames {
		if name == s {
			return Register(i), nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && n >= 0 && n < 32 {
		return Register(n), nil
	}
	return 0, fmt.Errorf("unknown register %q", s)
}

const (
	opSpecial = 0x00
	opJ       = 0x02
	opJal     = 0x03
	opAddiu   = 0x09
	opOri     = 0x0d
	opLui     = 0x0f
	opLw      = 0x23
	opSw      = 0x2b

	fnJr = 0x08

	// MaxShortImmediate is the largest value Li can load in one word.
	MaxShortImmediate = 0xffff

	targetMask = 0x03ffffff
)

// Nop is sll zero, zero, 0.
const Nop Word = 0

// ByteOrder of instructions in guest memory.
var ByteOrder = binary.LittleEndian

func iType(op uint32, rs, rt Register, imm uint16) Word {
	return Word(op<<26 | uint32(rs&31)<<21 | uint32(rt&31)<<16 | uint32(imm))
}

func jType(op uint32, target uint32) Word {
	return Word(op<<26 | (target>>2)&targetMask)
}

// Jal encodes jal target. Only the low 28 bits of target are kept; the
// upper bits come from the delay slot's address at run time.
func Jal(target uint32) Word {
	return jType(opJal, target)
}

// J encodes j target.
func J(target uint32) Word {
	return jType(opJ, target)
}

// Jr encodes jr reg.
func Jr(reg Register) Word {
	return Word(uint32(reg&31)<<21 | fnJr)
}

// JrRaNop returns jr ra followed by a nop in the delay slot. Written over a
// function's first two words it turns the function into an immediate return.
func JrRaNop() [2]Word {
	return [2]Word{Jr(RA), Nop}
}

// Li loads a value that fits the 16-bit immediate with ori reg, zero, value.
func Li(reg Register, value uint32) Word {
	if value > MaxShortImmediate {
		panic(fmt.Sprintf("mips: li immediate 0x%x exceeds 0x%x", value, MaxShortImmediate))
	}
	return Ori(reg, Zero, uint16(value))
}

// Li32 loads any 32-bit value with lui/ori. Both words must be written
// together.
func Li32(reg Register, value uint32) [2]Word {
	return [2]Word{
		Lui(reg, uint16(value>>16)),
		Ori(reg, reg, uint16(value)),
	}
}

// LoadImmediate returns the shortest sequence that loads value into reg.
func LoadImmediate(reg Register, value uint32) []Word {
	if value <= MaxShortImmediate {
		return []Word{Li(reg, value)}
	}
	w := Li32(reg, value)
	return w[:]
}

func Lui(reg Register, imm uint16) Word {
	return iType(opLui, Zero, reg, imm)
}

func Ori(rt, rs Register, imm uint16) Word {
	return iType(opOri, rs, rt, imm)
}

func Addiu(rt, rs Register, imm int16) Word {
	return iType(opAddiu, rs, rt, uint16(imm))
}

func Sw(rt Register, offset int16, base Register) Word {
	return iType(opSw, base, rt, uint16(offset))
}

func Lw(rt Register, offset int16, base Register) Word {
	return iType(opLw, base, rt, uint16(offset))
}

// Bytes serializes words in guest byte order.
func Bytes(words ...Word) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		ByteOrder.PutUint32(out[4*i:], uint32(w))
	}
	return out
}

// FromBytes is the inverse of Bytes. Trailing bytes that do not make up a
// whole word are ignored.
func FromBytes(b []byte) []Word {
	words := make([]Word, len(b)/4)
	for i := range words {
		words[i] = Word(ByteOrder.Uint32(b[4*i:]))
	}
	return words
}
