package mips_test

import (
	"fmt"

	"emupatch/pkg/mips"
)

func ExampleLoadImmediate() {
	for _, w := range mips.LoadImmediate(mips.A0, 0x0012a3f0) {
		fmt.Println(mips.Format(w))
	}

	// Output:
	// lui a0, 0x0012
	// ori a0, a0, 0xa3f0
}

func ExampleDisassemble() {
	ret := mips.JrRaNop()
	for _, line := range mips.Disassemble(0x00100000, ret[:]) {
		fmt.Println(line)
	}

	// Output:
	// 00100000: 03e00008  jr ra
	// 00100004: 00000000  nop
}
