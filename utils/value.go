package utils

import (
	"emupatch/pkg/mips"
	"emupatch/pkg/ram"
	"fmt"
	"strconv"
)

// Kinds lists the value types understood by ReadValue and WriteValue.
var Kinds = []string{"u8", "u16", "u32", "i8", "i16", "i32", "f32", "f64", "word"}

func readAs[T any](r *ram.Ram, addr uint32, format func(T) string) (string, error) {
	v, err := ram.Read[T](r, addr)
	if err != nil {
		return "", err
	}
	return format(v), nil
}

func unsigned[T uint8 | uint16 | uint32](width int) func(T) string {
	return func(v T) string {
		return fmt.Sprintf("0x%0*x (%d)", width, uint64(v), uint64(v))
	}
}

func signed[T int8 | int16 | int32](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

// ReadValue reads the value of the given kind at addr and renders it.
func ReadValue(r *ram.Ram, addr uint32, kind string) (string, error) {
	switch kind {
	case "u8":
		return readAs(r, addr, unsigned[uint8](2))
	case "u16":
		return readAs(r, addr, unsigned[uint16](4))
	case "", "u32":
		return readAs(r, addr, unsigned[uint32](8))
	case "i8":
		return readAs(r, addr, signed[int8])
	case "i16":
		return readAs(r, addr, signed[int16])
	case "i32":
		return readAs(r, addr, signed[int32])
	case "f32":
		return readAs(r, addr, func(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) })
	case "f64":
		return readAs(r, addr, func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) })
	case "word":
		w, err := r.ReadWord(addr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%08x  %s", uint32(w), mips.Format(w)), nil
	}
	return "", fmt.Errorf("unknown kind %q, expected one of %v", kind, Kinds)
}

// WriteValue parses text as the given kind and stores it at addr.
func WriteValue(r *ram.Ram, addr uint32, kind, text string) error {
	var err error
	switch kind {
	case "u8", "u16", "", "u32", "word":
		bits := map[string]int{"u8": 8, "u16": 16}[kind]
		if bits == 0 {
			bits = 32
		}
		var n uint64
		if n, err = strconv.ParseUint(text, 0, bits); err != nil {
			break
		}
		switch bits {
		case 8:
			return ram.Write(r, addr, uint8(n))
		case 16:
			return ram.Write(r, addr, uint16(n))
		}
		return ram.Write(r, addr, uint32(n))
	case "i8", "i16", "i32":
		bits := map[string]int{"i8": 8, "i16": 16, "i32": 32}[kind]
		var n int64
		if n, err = strconv.ParseInt(text, 0, bits); err != nil {
			break
		}
		switch bits {
		case 8:
			return ram.Write(r, addr, int8(n))
		case 16:
			return ram.Write(r, addr, int16(n))
		}
		return ram.Write(r, addr, int32(n))
	case "f32":
		var f float64
		if f, err = strconv.ParseFloat(text, 32); err != nil {
			break
		}
		return ram.Write(r, addr, float32(f))
	case "f64":
		var f float64
		if f, err = strconv.ParseFloat(text, 64); err != nil {
			break
		}
		return ram.Write(r, addr, f)
	default:
		return fmt.Errorf("unknown kind %q, expected one of %v", kind, Kinds)
	}
	return fmt.Errorf("bad %s value %q: %w", kind, text, err)
}
