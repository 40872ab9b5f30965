// Package signature matches byte patterns with wildcard positions against
// blocks of memory.
package signature

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Wildcard marks a position that matches any byte when building a
// Signature from ints.
const Wildcard = -1

// Signature is an ordered byte pattern. Positions that are not literal
// match anything, which lets one signature cover builds whose embedded
// pointers or constants drift.
type Signature struct {
	pattern []byte
	literal []bool
}

// New builds a signature from values in 0..255 or Wildcard.
func New(values []int) (Signature, error) {
	if len(values) == 0 {
		return Signature{}, fmt.Errorf("signature cannot be zero-length")
	}

	s := Signature{
		pattern: make([]byte, len(values)),
		literal: make([]bool, len(values)),
	}
	for i, v := range values {
		switch {
		case v == Wildcard:
		case v >= 0 && v <= 0xff:
			s.pattern[i] = byte(v)
			s.literal[i] = true
		default:
			return Signature{}, fmt.Errorf("signature value %d at index %d is not a byte", v, i)
		}
	}
	return s, nil
}

// Parse reads a pattern written as space separated hex bytes where "?" or
// "??" stands for a wildcard, e.g. "3C 02 ?? ?? 8C 42".
func Parse(text string) (Signature, error) {
	fields := strings.Fields(text)
	values := make([]int, len(fields))
	for i, f := range fields {
		if strings.Trim(f, "?") == "" {
			values[i] = Wildcard
			continue
		}

		b, err := hex.DecodeString(f)
		if err != nil || len(b) != 1 {
			return Signature{}, fmt.Errorf("invalid signature byte %q at index %d", f, i)
		}
		values[i] = int(b[0])
	}
	return New(values)
}

// MustParse is like Parse but panics on malformed input. It is meant for
// compiled-in tables.
func MustParse(text string) Signature {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of bytes the signature spans.
func (s Signature) Len() int {
	return len(s.pattern)
}

// Wildcards returns the indices of the wildcard positions.
func (s Signature) Wildcards() []int {
	var idx []int
	for i, lit := range s.literal {
		if !lit {
			idx = append(idx, i)
		}
	}
	return idx
}

// Match reports whether data holds the signature at offset zero. data must
// be at least Len bytes long.
func (s Signature) Match(data []byte) bool {
	if len(data) < len(s.pattern) || len(s.pattern) == 0 {
		return false
	}
	for i, b := range s.pattern {
		if s.literal[i] && data[i] != b {
			return false
		}
	}
	return true
}

// Mismatch returns the index of the first literal byte that differs, or -1
// when data matches.
func (s Signature) Mismatch(data []byte) int {
	for i, b := range s.pattern {
		if i >= len(data) {
			return i
		}
		if s.literal[i] && data[i] != b {
			return i
		}
	}
	return -1
}

// Scan returns every offset in data at which the signature matches.
func (s Signature) Scan(data []byte) []int {
	var results []int
	for i := 0; i+len(s.pattern) <= len(data); i++ {
		if s.Match(data[i:]) {
			results = append(results, i)
		}
	}
	return results
}

// Fill returns a copy of the pattern with wildcards replaced by fill. It
// is the smallest block of memory the signature matches.
func (s Signature) Fill(fill byte) []byte {
	out := make([]byte, len(s.pattern))
	for i, b := range s.pattern {
		if s.literal[i] {
			out[i] = b
		} else {
			out[i] = fill
		}
	}
	return out
}

func (s Signature) String() string {
	parts := make([]string, len(s.pattern))
	for i, b := range s.pattern {
		if s.literal[i] {
			parts[i] = fmt.Sprintf("%02X", b)
		} else {
			parts[i] = "??"
		}
	}
	return strings.Join(parts, " ")
}
