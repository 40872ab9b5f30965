// Package games holds the compiled-in tables of every supported build.
//
// Each build carries the 64 byte signature expected at its base and the
// offsets of the addresses feature code needs. Supporting a new build means
// adding one more entry here.
package games

import (
	_ "embed"
	"emupatch/pkg/offset"
	"emupatch/pkg/signature"
)

// Features is the patch set shipped for the title, in the format read by
// package patchset.
//
//go:embed features.yaml
var Features []byte

const (
	// SignatureWidth is the length of every signature in this package.
	SignatureWidth = 64

	// GuestRAMSize is the size of the emulated main memory.
	GuestRAMSize = 32 << 20
)

// Fields shared by all builds of the title. Offsets differ per build.
const (
	Camera       = "camera"
	CameraUpdate = "cameraUpdate"
	HudDraw      = "hudDraw"
	Fov          = "fov"
	FovCall      = "fovCall"
	FovSet       = "fovSet"
	Memcpy       = "memcpy"
	Scratch      = "scratch"
)

var trampoline = &offset.TrampolineLayout{
	Site: Scratch,
	Copy: Memcpy,
	Dest: Fov,
	Size: 4,
}

var versions = []offset.Version{
	{
		ID:    "SLUS-29001",
		Title: "Skyline Drift (NTSC-U)",
		Base:  0x0034a2c0,
		Width: SignatureWidth,
		Signature: signature.MustParse(
			"53 4B 44 5F 0C 00 ?? ?? ?? ?? D0 FF BD 27 20 00 " +
				"BF AF 18 00 B1 AF 10 00 B0 AF 2D 80 80 00 35 00 " +
				"02 3C A0 57 42 8C 06 00 40 10 2D 88 A0 00 B0 A2 " +
				"04 0C 2D 20 00 02 20 00 BF 8F 18 00 B1 8F 08 00"),
		References: map[string]uint32{"elf": 0x00100000},
		Fields: []offset.Field{
			{Name: Camera, Offset: 0x0000b4e0},
			{Name: CameraUpdate, Offset: 0x00001a40},
			{Name: HudDraw, Offset: 0x000022c8},
			{Name: Fov, Offset: 0x0000b530},
			{Name: FovCall, Offset: 0x00001b1c},
			{Name: FovSet, Offset: 0x0002c1b0, From: "elf"},
			{Name: Memcpy, Offset: 0x000003f0, From: "elf"},
			{Name: Scratch, Offset: 0x0007ff00, From: "elf"},
		},
		Trampoline: trampoline,
	},
	{
		ID:    "SLES-59001",
		Title: "Skyline Drift (PAL)",
		Base:  0x0034b6c0,
		Width: SignatureWidth,
		Signature: signature.MustParse(
			"53 4B 44 5F 0C 00 ?? ?? ?? ?? D0 FF BD 27 20 00 " +
				"BF AF 18 00 B1 AF 10 00 B0 AF 2D 80 80 00 36 00 " +
				"02 3C A0 57 42 8C 06 00 40 10 2D 88 A0 00 B0 A2 " +
				"04 0C 2D 20 00 02 20 00 BF 8F 18 00 B1 8F 08 00"),
		References: map[string]uint32{"elf": 0x00100000},
		Fields: []offset.Field{
			{Name: Camera, Offset: 0x0000b5a0},
			{Name: CameraUpdate, Offset: 0x00001a40},
			{Name: HudDraw, Offset: 0x000022d0},
			{Name: Fov, Offset: 0x0000b5f0},
			{Name: FovCall, Offset: 0x00001b1c},
			{Name: FovSet, Offset: 0x0002c1b0, From: "elf"},
			{Name: Memcpy, Offset: 0x000003f0, From: "elf"},
			{Name: Scratch, Offset: 0x0007ff00, From: "elf"},
		},
		Trampoline: trampoline,
	},
	{
		ID:    "SLPM-69001",
		Title: "Skyline Drift (NTSC-J)",
		Base:  0x00349f40,
		Width: SignatureWidth,
		Signature: signature.MustParse(
			"53 4B 44 5F 0C 00 ?? ?? ?? ?? D0 FF BD 27 20 00 " +
				"BF AF 18 00 B1 AF 10 00 B0 AF 2D 80 80 00 34 00 " +
				"02 3C A0 57 42 8C 06 00 40 10 2D 88 A0 00 B0 A2 " +
				"04 0C 2D 20 00 02 20 00 BF 8F 18 00 B1 8F 08 00"),
		References: map[string]uint32{"elf": 0x00100000},
		Fields: []offset.Field{
			{Name: Camera, Offset: 0x0000b460},
			{Name: CameraUpdate, Offset: 0x00001a38},
			{Name: HudDraw, Offset: 0x000022c0},
			{Name: Fov, Offset: 0x0000b4b0},
			{Name: FovCall, Offset: 0x00001b14},
			{Name: FovSet, Offset: 0x0002c1a8, From: "elf"},
			{Name: Memcpy, Offset: 0x000003e8, From: "elf"},
			{Name: Scratch, Offset: 0x0007ff00, From: "elf"},
		},
		// The Japanese build has no unused region large enough for the
		// copy trampoline.
	},
}

var registry = offset.NewRegistry().MustRegister(versions...)

// Registry returns the registry of all compiled-in builds.
func Registry() *offset.Registry {
	return registry
}
