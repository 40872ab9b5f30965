package proc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// ErrUnmapped is returned when an access touches bytes no segment covers.
var ErrUnmapped = errors.New("address not mapped")

type segment struct {
	start uint64
	data  []byte
}

func (s *segment) end() uint64 {
	return s.start + uint64(len(s.data))
}

// Image is a MemoryReadWriter backed by process memory held in this
// process: a raw dump loaded from disk, or a synthetic image built by tests.
// Accesses must fall entirely inside one segment.
type Image struct {
	segments []*segment
}

func NewImage() *Image {
	return &Image{}
}

// Map adds a segment starting at addr. Overlapping segments are rejected.
func (m *Image) Map(addr uint64, data []byte) error {
	s := &segment{start: addr, data: data}
	for _, o := range m.segments {
		if s.start < o.end() && o.start < s.end() {
			return fmt.Errorf("segment 0x%x-0x%x overlaps 0x%x-0x%x", s.start, s.end(), o.start, o.end())
		}
	}

	m.segments = append(m.segments, s)
	sort.Slice(m.segments, func(i, j int) bool {
		return m.segments[i].start < m.segments[j].start
	})
	return nil
}

// LoadImage maps the contents of a raw memory dump at addr.
func LoadImage(path string, addr uint64) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read dump %s: %w", path, err)
	}

	m := NewImage()
	if err := m.Map(addr, data); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Image) find(addr uint64, n int) (*segment, error) {
	for _, s := range m.segments {
		if addr >= s.start && addr+uint64(n) <= s.end() {
			return s, nil
		}
	}
	return nil, ErrUnmapped
}

func (m *Image) ReadMemory(buf []byte, addr uint64) (int, error) {
	s, err := m.find(addr, len(buf))
	if err != nil {
		return 0, err
	}
	return copy(buf, s.data[addr-s.start:]), nil
}

func (m *Image) WriteMemory(addr uint64, data []byte) (int, error) {
	s, err := m.find(addr, len(data))
	if err != nil {
		return 0, err
	}
	return copy(s.data[addr-s.start:], data), nil
}
