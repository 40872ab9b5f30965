package utils

import (
	"emupatch/pkg/mips"
	"fmt"
	"github.com/fatih/color"
	"io"
	"strings"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	errorColor  = color.New(color.FgRed)
	okColor     = color.New(color.FgGreen)
)

// PrintError writes err in red to w.
func PrintError(w io.Writer, err error) {
	errorColor.Fprintln(w, err)
}

func PrintHeader(w io.Writer, format string, args ...interface{}) {
	headerColor.Fprintf(w, format+"\n", args...)
}

// OnOff renders a switch state with colour.
func OnOff(on bool) string {
	if on {
		return okColor.Sprint("on")
	}
	return errorColor.Sprint("off")
}

// HexDump renders bs 16 bytes per line, labelled with guest addresses.
func HexDump(addr uint32, bs []byte) string {
	var b strings.Builder
	for off := 0; off < len(bs); off += 16 {
		end := min(off+16, len(bs))
		fmt.Fprintf(&b, "%08x  % x\n", addr+uint32(off), bs[off:end])
	}
	return b.String()
}

// PrintWords disassembles words starting at addr.
func PrintWords(w io.Writer, addr uint32, words []mips.Word) {
	for _, line := range mips.Disassemble(addr, words) {
		fmt.Fprintln(w, line)
	}
}
