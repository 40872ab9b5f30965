package prowler

import (
	e "emupatch/error"
	"fmt"
	"io"
	"os"
)

// Prowler is a handle on a running process whose memory is read and written
// through process_vm_readv(2) and process_vm_writev(2). It keeps no state
// besides the pid, so it is safe to copy.
type Prowler struct {
	pid int
}

func NewProwler(pid int) (*Prowler, error) {
	if pid <= 0 {
		return nil, e.InvalidHandle
	}

	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); err != nil {
		return nil, fmt.Errorf("pid %d: %w", pid, e.InvalidHandle)
	}

	return &Prowler{pid: pid}, nil
}

func (p *Prowler) Pid() int {
	return p.pid
}

// Alive reports whether the process still exists.
func (p *Prowler) Alive() bool {
	return alive(p.pid)
}

// Executable returns the path of the process image.
func (p *Prowler) Executable() (string, error) {
	return os.Readlink(fmt.Sprintf("/proc/%d/exe", p.pid))
}

// Regions returns the current memory map of the process.
func (p *Prowler) Regions() ([]MemoryRegion, error) {
	return parseProcMaps(p.pid)
}

// GuestMemory locates the host address of the emulated RAM, size bytes long.
func (p *Prowler) GuestMemory(size uint64) (uint64, error) {
	regions, err := p.Regions()
	if err != nil {
		return 0, err
	}
	return findGuestMemory(regions, size)
}

func (p *Prowler) ReadMemory(bs []byte, addr uint64) (int, error) {
	n, err := readMemory(p.pid, bs, uintptr(addr))
	if err == nil && n < len(bs) {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

func (p *Prowler) WriteMemory(addr uint64, bs []byte) (int, error) {
	n, err := writeMemory(p.pid, bs, uintptr(addr))
	if err == nil && n < len(bs) {
		err = io.ErrShortWrite
	}
	return n, err
}
