package offset

import (
	e "emupatch/error"
	"emupatch/pkg/signature"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Table is the set of absolute guest addresses of one resolved build. It is
// never modified after Resolve returns it and may be shared freely.
type Table struct {
	version    string
	base       uint32
	fields     map[string]uint32
	trampoline *TrampolineLayout
	signature  signature.Signature
}

func (t *Table) Version() string {
	return t.version
}

// Base is the confirmed base address all fields were computed from.
func (t *Table) Base() uint32 {
	return t.base
}

func (t *Table) Get(name string) (uint32, bool) {
	addr, ok := t.fields[name]
	return addr, ok
}

// Lookup is Get with an error suitable for returning to callers.
func (t *Table) Lookup(name string) (uint32, error) {
	addr, ok := t.fields[name]
	if !ok {
		return 0, fmt.Errorf("%s: %q: %w", t.version, name, e.FieldNotFound)
	}
	return addr, nil
}

// MustGet panics when the field does not exist. Feature code that was
// written against a specific table uses it.
func (t *Table) MustGet(name string) uint32 {
	addr, err := t.Lookup(name)
	if err != nil {
		panic(err)
	}
	return addr
}

// Names returns all field names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.fields))
	for name := range t.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trampoline returns the trampoline layout of the build, if it has one.
func (t *Table) Trampoline() (TrampolineLayout, bool) {
	if t.trampoline == nil {
		return TrampolineLayout{}, false
	}
	return *t.trampoline, true
}

// Expr evaluates an address expression: a number ("0x0012a3f0"), a field
// name, or a field name with a signed offset ("camera+0x10", "hud-4").
// A nil table only accepts numbers.
func (t *Table) Expr(expr string) (uint32, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("empty address expression")
	}

	if n, err := strconv.ParseUint(expr, 0, 32); err == nil {
		return uint32(n), nil
	}

	name, rest, sign := expr, "", uint32(1)
	if i := strings.IndexAny(expr, "+-"); i > 0 {
		name, rest = strings.TrimSpace(expr[:i]), strings.TrimSpace(expr[i+1:])
		if expr[i] == '-' {
			sign = ^uint32(0)
		}
	}

	if t == nil {
		return 0, fmt.Errorf("%q: no offset table to resolve names against", expr)
	}

	addr, err := t.Lookup(name)
	if err != nil {
		return 0, err
	}

	if rest != "" {
		n, err := strconv.ParseUint(rest, 0, 32)
		if err != nil {
			return 0, fmt.Errorf("bad offset in %q: %w", expr, err)
		}
		addr += uint32(n) * sign
	}
	return addr, nil
}

// Verify checks that the signature the table was resolved from is still in
// place. The guest may have unloaded or replaced the executable since.
func (t *Table) Verify(mem Reader) error {
	block, err := mem.ReadBytes(t.base, t.signature.Len())
	if err != nil {
		return err
	}
	if i := t.signature.Mismatch(block); i >= 0 {
		return fmt.Errorf("%s: byte %d at 0x%08x changed: %w", t.version, i, t.base+uint32(i), e.VersionMismatch)
	}
	return nil
}
