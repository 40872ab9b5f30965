package offset

import (
	e "emupatch/error"
	"emupatch/pkg/signature"
	"fmt"
)

// Field places a named address at a fixed offset from an anchor. The anchor
// is the confirmed base unless From names one of the version's references.
type Field struct {
	Name   string
	Offset uint32
	From   string
}

// TrampolineLayout names the fields a copy trampoline is built from: the
// scratch site it is written to, the guest's copy routine, and the
// destination the staged data is copied to.
type TrampolineLayout struct {
	Site string
	Copy string
	Dest string
	Size uint32
}

// Version describes one supported game build: where its signature is
// expected and which addresses hang off the base once it is confirmed.
type Version struct {
	ID    string
	Title string

	// Base is the candidate address of the signature. Zero means the
	// build has not been scanned yet.
	Base      uint32
	Width     int
	Signature signature.Signature

	// References are secondary anchors, such as the load address of the
	// main executable, for fields that do not move with Base.
	References map[string]uint32
	Fields     []Field
	Trampoline *TrampolineLayout
}

// Validate checks the table for defects. A failing table is a programming
// error, not a runtime condition.
func (v Version) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("version has no id")
	}

	if v.Width <= 0 || v.Signature.Len() != v.Width {
		return fmt.Errorf("%s: signature is %d bytes, table declares %d: %w",
			v.ID, v.Signature.Len(), v.Width, e.SignatureWidth)
	}

	seen := make(map[string]bool, len(v.Fields))
	for _, f := range v.Fields {
		if f.Name == "" {
			return fmt.Errorf("%s: field with empty name", v.ID)
		}
		if seen[f.Name] {
			return fmt.Errorf("%s: duplicate field %q", v.ID, f.Name)
		}
		seen[f.Name] = true

		if f.From != "" {
			if _, ok := v.References[f.From]; !ok {
				return fmt.Errorf("%s: field %q uses unknown reference %q", v.ID, f.Name, f.From)
			}
		}
	}

	if t := v.Trampoline; t != nil {
		for _, name := range []string{t.Site, t.Copy, t.Dest} {
			if !seen[name] {
				return fmt.Errorf("%s: trampoline uses unknown field %q", v.ID, name)
			}
		}
		if t.Size == 0 {
			return fmt.Errorf("%s: trampoline copies zero bytes", v.ID)
		}
	}
	return nil
}
