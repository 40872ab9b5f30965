// Package ram reads and writes guest memory of an emulated machine through
// the memory interface of the host process that emulates it.
//
// Addresses are guest addresses. A Ram adds the host address at which guest
// memory is mapped before every access, so callers never deal with host
// pointers.
package ram

import (
	"bytes"
	e "emupatch/error"
	"emupatch/pkg/logflags"
	"emupatch/pkg/mips"
	"emupatch/pkg/proc"
	"encoding/binary"
	"fmt"
)

// ByteOrder of the guest.
var ByteOrder binary.ByteOrder = binary.LittleEndian

type Ram struct {
	mem    proc.MemoryReadWriter
	base   uint64
	logger logflags.Logger
}

// New returns a Ram for guest memory mapped at base in mem. A base of zero
// means guest addresses are host addresses. A nil mem is accepted here and
// every access through it fails with e.InvalidHandle.
func New(mem proc.MemoryReadWriter, base uint64) *Ram {
	return &Ram{
		mem:    mem,
		base:   base,
		logger: logflags.RamLogger(),
	}
}

// Base returns the host address of guest address zero.
func (r *Ram) Base() uint64 {
	return r.base
}

func (r *Ram) host(addr uint32) uint64 {
	return r.base + uint64(addr)
}

func (r *Ram) ReadBytes(addr uint32, n int) ([]byte, error) {
	if r.mem == nil {
		return nil, &e.AccessError{Op: "read", Addr: uint64(addr), Err: e.InvalidHandle}
	}

	buf := make([]byte, n)
	if _, err := r.mem.ReadMemory(buf, r.host(addr)); err != nil {
		return nil, &e.AccessError{Op: "read", Addr: uint64(addr), Err: err}
	}
	return buf, nil
}

func (r *Ram) WriteBytes(addr uint32, data []byte) error {
	if r.mem == nil {
		return &e.AccessError{Op: "write", Addr: uint64(addr), Err: e.InvalidHandle}
	}

	if _, err := r.mem.WriteMemory(r.host(addr), data); err != nil {
		return &e.AccessError{Op: "write", Addr: uint64(addr), Err: err}
	}
	r.logger.Debugf("wrote %d bytes at 0x%08x: % x", len(data), addr, data)
	return nil
}

func (r *Ram) ReadWord(addr uint32) (mips.Word, error) {
	v, err := Read[uint32](r, addr)
	return mips.Word(v), err
}

func (r *Ram) ReadWords(addr uint32, n int) ([]mips.Word, error) {
	b, err := r.ReadBytes(addr, 4*n)
	if err != nil {
		return nil, err
	}
	return mips.FromBytes(b), nil
}

func (r *Ram) WriteWords(addr uint32, words ...mips.Word) error {
	return r.WriteBytes(addr, mips.Bytes(words...))
}

// Read decodes a fixed-size value (integers, floats, arrays and structs of
// those) stored at addr.
func Read[T any](r *Ram, addr uint32) (T, error) {
	var v T
	size := binary.Size(v)
	if size <= 0 {
		return v, fmt.Errorf("ram: %T has no fixed size", v)
	}

	buf, err := r.ReadBytes(addr, size)
	if err != nil {
		return v, err
	}

	if _, err := binary.Decode(buf, ByteOrder, &v); err != nil {
		return v, fmt.Errorf("ram: decode %T at 0x%08x: %w", v, addr, err)
	}
	return v, nil
}

// Write stores v at addr verbatim. The write is not atomic with respect to
// the guest.
func Write[T any](r *Ram, addr uint32, v T) error {
	buf, err := encode(v)
	if err != nil {
		return err
	}
	return r.WriteBytes(addr, buf)
}

func encode(v any) ([]byte, error) {
	if binary.Size(v) <= 0 {
		return nil, fmt.Errorf("ram: %T has no fixed size", v)
	}
	return binary.Append(nil, ByteOrder, v)
}

// Matches reports whether the bytes at addr equal want.
func (r *Ram) Matches(addr uint32, want []byte) (bool, error) {
	cur, err := r.ReadBytes(addr, len(want))
	if err != nil {
		return false, err
	}
	return bytes.Equal(cur, want), nil
}
