// Package offset confirms which game build is running by matching a
// signature at its expected base address, and turns the build's offset
// list into a table of absolute addresses.
package offset

import (
	e "emupatch/error"
	"emupatch/pkg/signature"
	"fmt"
)

// Reader reads guest memory. *ram.Ram satisfies it.
type Reader interface {
	ReadBytes(addr uint32, n int) ([]byte, error)
}

// Resolve confirms v.Signature at v.Base and computes every field. On any
// failure no table is returned; callers must not run features without one.
func Resolve(mem Reader, v Version) (*Table, error) {
	if v.Base == 0 {
		return nil, fmt.Errorf("%s: %w", v.ID, e.NotScanned)
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}

	block, err := mem.ReadBytes(v.Base, v.Signature.Len())
	if err != nil {
		return nil, fmt.Errorf("%s: read signature block: %w", v.ID, err)
	}

	if i := v.Signature.Mismatch(block); i >= 0 {
		return nil, fmt.Errorf("%s: byte %d at 0x%08x is 0x%02x: %w",
			v.ID, i, v.Base+uint32(i), block[i], e.VersionMismatch)
	}

	return build(v), nil
}

func build(v Version) *Table {
	t := &Table{
		version:   v.ID,
		base:      v.Base,
		fields:    make(map[string]uint32, len(v.Fields)),
		signature: v.Signature,
	}

	for _, f := range v.Fields {
		anchor := v.Base
		if f.From != "" {
			anchor = v.References[f.From]
		}
		t.fields[f.Name] = anchor + f.Offset
	}

	if v.Trampoline != nil {
		layout := *v.Trampoline
		t.trampoline = &layout
	}
	return t
}

// Locate searches guest memory between from and to for sig and returns
// every address it matches at. It is a tool for finding the base of a new
// build; Resolve never searches.
func Locate(mem Reader, sig signature.Signature, from, to uint32) ([]uint32, error) {
	const chunk = 0x10000

	if sig.Len() == 0 || to <= from {
		return nil, fmt.Errorf("invalid search range 0x%08x-0x%08x", from, to)
	}

	var found []uint32
	overlap := uint32(sig.Len() - 1)
	for start := from; start < to; start += chunk {
		size := min(uint64(chunk)+uint64(overlap), uint64(to)-uint64(start))
		if size < uint64(sig.Len()) {
			break
		}

		block, err := mem.ReadBytes(start, int(size))
		if err != nil {
			return found, fmt.Errorf("locate at 0x%08x: %w", start, err)
		}

		for _, off := range sig.Scan(block) {
			if uint32(off) < chunk {
				found = append(found, start+uint32(off))
			}
		}

		if uint64(start)+chunk >= uint64(to) {
			break
		}
	}
	return found, nil
}
