package ram

import (
	"emupatch/pkg/mips"
	"errors"
	"fmt"
)

// Patch is a switch embedded in guest code: the bytes at Addr are On while
// a feature is enabled and Off otherwise.
type Patch struct {
	Addr uint32
	On   []byte
	Off  []byte
}

// Toggle builds a patch from raw bytes. Both states must be the same length.
func Toggle(addr uint32, on, off []byte) Patch {
	if len(on) != len(off) {
		panic(fmt.Sprintf("ram: patch at 0x%08x has %d enabled and %d disabled bytes", addr, len(on), len(off)))
	}
	return Patch{Addr: addr, On: on, Off: off}
}

// Words builds a patch from instruction sequences.
func Words(addr uint32, on, off []mips.Word) Patch {
	return Toggle(addr, mips.Bytes(on...), mips.Bytes(off...))
}

// Word builds a single instruction patch.
func Word(addr uint32, on, off mips.Word) Patch {
	return Words(addr, []mips.Word{on}, []mips.Word{off})
}

// Value builds a patch from two fixed-size values of the same type.
func Value[T any](addr uint32, on, off T) Patch {
	onb, err := encode(on)
	if err != nil {
		panic(err)
	}
	offb, err := encode(off)
	if err != nil {
		panic(err)
	}
	return Toggle(addr, onb, offb)
}

// Bytes returns the bytes the site should hold in the given state.
func (p Patch) Bytes(enabled bool) []byte {
	if enabled {
		return p.On
	}
	return p.Off
}

func (p Patch) String() string {
	return fmt.Sprintf("0x%08x: % x / % x", p.Addr, p.On, p.Off)
}

// WriteConditional puts every patch into the enabled or disabled state, in
// the order given. Sites already holding the wanted bytes are not written,
// so calling it every frame with an unchanged state only costs the reads.
//
// A failing patch does not stop the ones after it; all failures are joined
// into the returned error. Patches are not applied atomically: list the one
// that is safe on its own first.
func (r *Ram) WriteConditional(enabled bool, patches ...Patch) error {
	var errs []error
	for _, p := range patches {
		want := p.Bytes(enabled)
		if len(p.On) != len(p.Off) {
			errs = append(errs, fmt.Errorf("ram: malformed patch %s", p))
			continue
		}

		if same, err := r.Matches(p.Addr, want); err == nil && same {
			continue
		}

		if err := r.WriteBytes(p.Addr, want); err != nil {
			r.logger.Debugf("patch 0x%08x skipped: %v", p.Addr, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// State reports whether every patch currently holds its enabled bytes.
func (r *Ram) State(patches ...Patch) (bool, error) {
	for _, p := range patches {
		on, err := r.Matches(p.Addr, p.On)
		if err != nil {
			return false, err
		}
		if !on {
			return false, nil
		}
	}
	return true, nil
}
