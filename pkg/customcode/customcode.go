// Package customcode synthesizes small MIPS routines, writes them into
// unused guest memory and provides the patches that divert existing call
// sites into them.
package customcode

import (
	e "emupatch/error"
	"emupatch/pkg/logflags"
	"emupatch/pkg/mips"
	"emupatch/pkg/offset"
	"emupatch/pkg/ram"
	"fmt"
)

// Memory is the part of *ram.Ram the injector needs.
type Memory interface {
	ReadWord(addr uint32) (mips.Word, error)
	WriteWords(addr uint32, words ...mips.Word) error
	WriteBytes(addr uint32, data []byte) error
	Matches(addr uint32, want []byte) (bool, error)
}

// frame is the stack space the routine reserves; the EE ABI keeps sp
// 16 byte aligned.
const frame = 16

// Trampoline is a routine that copies a block staged right behind its own
// code to a fixed destination by calling the guest's copy routine:
//
//	addiu sp, sp, -16
//	sw    ra, 12(sp)
//	lui   a0, dest>>16 ; ori a0, a0, dest
//	lui   a1, data>>16 ; ori a1, a1, data
//	li    a2, size
//	jal   copy
//	nop
//	lw    ra, 12(sp)
//	jr    ra
//	addiu sp, sp, 16
//
// Once written it stays in guest memory for the life of the process.
type Trampoline struct {
	site   uint32
	copyFn uint32
	dest   uint32
	size   uint32
	words  []mips.Word
	logger logflags.Logger
}

// NewCopyTrampoline builds the routine for site without touching memory.
func NewCopyTrampoline(site, copyFn, dest, size uint32) *Trampoline {
	t := &Trampoline{
		site:   site,
		copyFn: copyFn,
		dest:   dest,
		size:   size,
		logger: logflags.InjectLogger(),
	}
	t.words = t.compose()
	return t
}

// FromVersion builds the trampoline described by a resolved build.
func FromVersion(table *offset.Table) (*Trampoline, error) {
	layout, ok := table.Trampoline()
	if !ok {
		return nil, fmt.Errorf("%s: %w", table.Version(), e.NoTrampoline)
	}

	var addrs [3]uint32
	for i, name := range []string{layout.Site, layout.Copy, layout.Dest} {
		addr, err := table.Lookup(name)
		if err != nil {
			return nil, err
		}
		addrs[i] = addr
	}
	return NewCopyTrampoline(addrs[0], addrs[1], addrs[2], layout.Size), nil
}

func (t *Trampoline) compose() []mips.Word {
	size := mips.LoadImmediate(mips.A2, t.size)
	n := 11 + len(size)
	data := t.site + uint32(4*n)

	dest := mips.Li32(mips.A0, t.dest)
	src := mips.Li32(mips.A1, data)

	words := make([]mips.Word, 0, n)
	words = append(words,
		mips.Addiu(mips.SP, mips.SP, -frame),
		mips.Sw(mips.RA, frame-4, mips.SP),
	)
	words = append(words, dest[:]...)
	words = append(words, src[:]...)
	words = append(words, size...)
	words = append(words,
		mips.Jal(t.copyFn),
		mips.Nop,
		mips.Lw(mips.RA, frame-4, mips.SP),
		mips.Jr(mips.RA),
		mips.Addiu(mips.SP, mips.SP, frame),
	)
	return words
}

// Site is the address the routine is written to.
func (t *Trampoline) Site() uint32 {
	return t.site
}

// Marker is the first instruction of the routine. IsApplied compares it.
func (t *Trampoline) Marker() mips.Word {
	return t.words[0]
}

// Len is the routine's length in bytes.
func (t *Trampoline) Len() int {
	return 4 * len(t.words)
}

// DataAddr is the address right after the routine, where the block to copy
// is staged.
func (t *Trampoline) DataAddr() uint32 {
	return t.site + uint32(t.Len())
}

// DataSize is the number of bytes the routine copies.
func (t *Trampoline) DataSize() uint32 {
	return t.size
}

// Words returns a copy of the routine.
func (t *Trampoline) Words() []mips.Word {
	return append([]mips.Word(nil), t.words...)
}

// IsApplied reports whether the site starts with the routine's first
// instruction. Unrelated code starting with the same word is reported as
// applied; IsIntact checks the whole routine.
func (t *Trampoline) IsApplied(mem Memory) (bool, error) {
	w, err := mem.ReadWord(t.site)
	if err != nil {
		return false, err
	}
	return w == t.Marker(), nil
}

// IsIntact reports whether the site holds the complete routine.
func (t *Trampoline) IsIntact(mem Memory) (bool, error) {
	return mem.Matches(t.site, mips.Bytes(t.words...))
}

// Install writes the routine and returns DataAddr. Writing it again is
// harmless: the bytes are identical every time.
func (t *Trampoline) Install(mem Memory) (uint32, error) {
	if err := mem.WriteWords(t.site, t.words...); err != nil {
		return 0, fmt.Errorf("install trampoline at 0x%08x: %w", t.site, err)
	}
	t.logger.Infof("installed %d byte trampoline at 0x%08x, data at 0x%08x", t.Len(), t.site, t.DataAddr())
	return t.DataAddr(), nil
}

// Ensure installs the routine unless the site already holds all of it. It
// is cheap enough to call every frame.
func (t *Trampoline) Ensure(mem Memory) (data uint32, installed bool, err error) {
	intact, err := t.IsIntact(mem)
	if err != nil {
		return 0, false, err
	}
	if intact {
		return t.DataAddr(), false, nil
	}

	data, err = t.Install(mem)
	return data, err == nil, err
}

// Stage writes the block the routine will copy into the data area, unless
// it is already there.
func (t *Trampoline) Stage(mem Memory, data []byte) error {
	if uint32(len(data)) > t.size {
		return fmt.Errorf("staged %d bytes, trampoline copies %d", len(data), t.size)
	}
	if len(data) == 0 {
		return nil
	}
	if same, err := mem.Matches(t.DataAddr(), data); err == nil && same {
		return nil
	}
	return mem.WriteBytes(t.DataAddr(), data)
}

// Redirect returns the patch that turns the call at callSite into a call
// of the routine. Disabling the patch restores original.
func (t *Trampoline) Redirect(callSite uint32, original mips.Word) ram.Patch {
	return ram.Word(callSite, mips.Jal(t.site), original)
}
