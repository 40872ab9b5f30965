// Package patchset reads feature definitions from YAML and resolves them
// against the offset table of a running build.
//
// A definition looks like:
//
//	title: Skyline Drift
//	versions: [SLUS-29001]
//	features:
//	  - name: hud
//	    patches:
//	      - at: hudDraw+0x8
//	        on: [ret]
//	        off: [0x27bdffd0, 0xafbf0020]
//	  - name: widescreen
//	    inject:
//	      call: fovCall
//	      original: jal fovSet
//	      float: 1.3333334
//
// Addresses are expressions understood by offset.Table.Expr. Instructions
// are numbers or one of nop, ret, "jal ADDR", "j ADDR" and "li REG, VALUE".
package patchset

import (
	"bytes"
	e "emupatch/error"
	"emupatch/pkg/customcode"
	"emupatch/pkg/mips"
	"emupatch/pkg/offset"
	"emupatch/pkg/ram"
	"emupatch/pkg/session"
	"encoding/binary"
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
)

type Set struct {
	Title    string    `yaml:"title"`
	Versions []string  `yaml:"versions,omitempty"`
	Features []Feature `yaml:"features"`
}

type Feature struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Patches     []Site  `yaml:"patches,omitempty"`
	Inject      *Inject `yaml:"inject,omitempty"`
}

// Site is one patched location. On and Off must assemble to the same
// number of words.
type Site struct {
	At  string `yaml:"at"`
	On  Code   `yaml:"on"`
	Off Code   `yaml:"off"`
}

// Inject diverts the call at Call into the build's copy trampoline, which
// copies the staged block over the trampoline destination.
type Inject struct {
	Call     string   `yaml:"call"`
	Original string   `yaml:"original"`
	Stage    Code     `yaml:"stage,omitempty"`
	Float    *float32 `yaml:"float,omitempty"`
}

// Code is a list of instructions. A single scalar is accepted as a list of
// one.
type Code []string

func (c *Code) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*c = Code{node.Value}
		return nil
	case yaml.SequenceNode:
		out := make(Code, 0, len(node.Content))
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: instruction must be a scalar", n.Line)
			}
			out = append(out, n.Value)
		}
		*c = out
		return nil
	}
	return fmt.Errorf("line %d: code must be a scalar or a list", node.Line)
}

// Assemble encodes the instructions, resolving addresses against t.
func (c Code) Assemble(t *offset.Table) ([]mips.Word, error) {
	var words []mips.Word
	for _, ins := range c {
		w, err := assemble(t, ins)
		if err != nil {
			return nil, err
		}
		words = append(words, w...)
	}
	return words, nil
}

func assemble(t *offset.Table, ins string) ([]mips.Word, error) {
	f := strings.Fields(strings.ReplaceAll(ins, ",", " "))
	if len(f) == 0 {
		return nil, errors.New("empty instruction")
	}

	switch op := strings.ToLower(f[0]); op {
	case "nop":
		if len(f) == 1 {
			return []mips.Word{mips.Nop}, nil
		}
	case "ret":
		if len(f) == 1 {
			ret := mips.JrRaNop()
			return ret[:], nil
		}
	case "jal", "j":
		if len(f) < 2 {
			break
		}
		addr, err := t.Expr(strings.Join(f[1:], ""))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", ins, err)
		}
		if op == "j" {
			return []mips.Word{mips.J(addr)}, nil
		}
		return []mips.Word{mips.Jal(addr)}, nil
	case "li":
		if len(f) < 3 {
			break
		}
		reg, err := mips.ParseRegister(f[1])
		if err != nil {
			return nil, fmt.Errorf("%q: %w", ins, err)
		}
		v, err := t.Expr(strings.Join(f[2:], ""))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", ins, err)
		}
		return mips.LoadImmediate(reg, v), nil
	default:
		if len(f) == 1 {
			n, err := strconv.ParseUint(f[0], 0, 32)
			if err != nil {
				return nil, fmt.Errorf("bad instruction %q", ins)
			}
			return []mips.Word{mips.Word(n)}, nil
		}
	}
	return nil, fmt.Errorf("bad instruction %q", ins)
}

// Parse decodes and validates a set. Unknown keys are rejected.
func Parse(data []byte) (*Set, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Set
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("patchset: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks what can be checked without an offset table.
func (s *Set) Validate() error {
	seen := make(map[string]bool)
	for i, f := range s.Features {
		if f.Name == "" {
			return fmt.Errorf("patchset: feature %d has no name", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("patchset: duplicate feature %q", f.Name)
		}
		seen[f.Name] = true

		if len(f.Patches) == 0 && f.Inject == nil {
			return fmt.Errorf("patchset: feature %q patches nothing", f.Name)
		}
		for _, p := range f.Patches {
			if p.At == "" || len(p.On) == 0 || len(p.Off) == 0 {
				return fmt.Errorf("patchset: feature %q: incomplete patch at %q", f.Name, p.At)
			}
		}
		if in := f.Inject; in != nil {
			if in.Call == "" || in.Original == "" {
				return fmt.Errorf("patchset: feature %q: inject needs call and original", f.Name)
			}
			if (in.Float == nil) == (len(in.Stage) == 0) {
				return fmt.Errorf("patchset: feature %q: inject needs exactly one of stage and float", f.Name)
			}
		}
	}
	return nil
}

// Supports reports whether the set applies to the build with the given id.
// A set without a version list applies to every build.
func (s *Set) Supports(id string) bool {
	return len(s.Versions) == 0 || slices.Contains(s.Versions, id)
}

// Resolve turns every feature into patches at absolute addresses. Features
// that inject code into a build without a trampoline are left out and
// named in skipped.
func (s *Set) Resolve(t *offset.Table) (features []session.Feature, skipped []string, err error) {
	if !s.Supports(t.Version()) {
		return nil, nil, fmt.Errorf("patchset %q: %s: %w", s.Title, t.Version(), e.UnknownVersion)
	}

	for _, f := range s.Features {
		rf, err := f.resolve(t)
		if errors.Is(err, e.NoTrampoline) {
			skipped = append(skipped, f.Name)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("feature %q: %w", f.Name, err)
		}
		features = append(features, rf)
	}
	return features, skipped, nil
}

func (f Feature) resolve(t *offset.Table) (session.Feature, error) {
	out := session.Feature{Name: f.Name, Description: f.Description}

	for _, site := range f.Patches {
		addr, err := t.Expr(site.At)
		if err != nil {
			return out, err
		}
		on, err := site.On.Assemble(t)
		if err != nil {
			return out, err
		}
		off, err := site.Off.Assemble(t)
		if err != nil {
			return out, err
		}
		if len(on) != len(off) {
			return out, fmt.Errorf("%s: on has %d words, off has %d", site.At, len(on), len(off))
		}
		out.Patches = append(out.Patches, ram.Words(addr, on, off))
	}

	if f.Inject != nil {
		in, err := f.Inject.resolve(t)
		if err != nil {
			return out, err
		}
		out.Inject = in
	}
	return out, nil
}

func (in *Inject) resolve(t *offset.Table) (*session.Injection, error) {
	tr, err := customcode.FromVersion(t)
	if err != nil {
		return nil, err
	}

	call, err := t.Expr(in.Call)
	if err != nil {
		return nil, err
	}
	original, err := Code{in.Original}.Assemble(t)
	if err != nil {
		return nil, err
	}
	if len(original) != 1 {
		return nil, fmt.Errorf("original %q is not a single instruction", in.Original)
	}

	var stage []byte
	if in.Float != nil {
		stage = binary.LittleEndian.AppendUint32(nil, math.Float32bits(*in.Float))
	} else {
		words, err := in.Stage.Assemble(t)
		if err != nil {
			return nil, err
		}
		stage = mips.Bytes(words...)
	}
	if uint32(len(stage)) > tr.DataSize() {
		return nil, fmt.Errorf("staged %d bytes, trampoline copies %d", len(stage), tr.DataSize())
	}

	return &session.Injection{
		Trampoline: tr,
		Redirect:   tr.Redirect(call, original[0]),
		Stage:      stage,
	}, nil
}
