package prowler

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type MemoryRegion struct {
	Start  uint64
	End    uint64
	Perms  string
	Offset uint64
	Device string
	Inode  uint64
	Path   string
}

func (r MemoryRegion) Size() uint64 {
	return r.End - r.Start
}

// anonymous reports whether the mapping is private, writable and not backed
// by a file, which is how emulators allocate guest RAM.
func (r MemoryRegion) anonymous() bool {
	return r.Perms == "rw-p" && r.Offset == 0 && r.Inode == 0 && !strings.HasPrefix(r.Path, "[")
}

// parseProcMaps parses /proc/[pid]/maps
func parseProcMaps(pid int) ([]MemoryRegion, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	return parseMaps(string(data)), nil
}

func parseMaps(data string) []MemoryRegion {
	var regions []MemoryRegion
	for _, line := range strings.Split(data, "\n") {
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}

		addrs := strings.Split(fields[0], "-")
		if len(addrs) != 2 {
			continue
		}
		start, _ := strconv.ParseUint(addrs[0], 16, 64)
		end, _ := strconv.ParseUint(addrs[1], 16, 64)

		region := MemoryRegion{
			Start:  start,
			End:    end,
			Perms:  fields[1],
			Offset: parseHex(fields[2]),
			Device: fields[3],
			Inode:  parseDec(fields[4]),
		}
		if len(fields) > 5 {
			region.Path = strings.Join(fields[5:], " ")
		}
		regions = append(regions, region)
	}
	return regions
}

// findGuestMemory returns the start of the anonymous mapping holding the
// emulated RAM. An exact size match wins; otherwise the smallest anonymous
// region large enough is used.
func findGuestMemory(regions []MemoryRegion, size uint64) (uint64, error) {
	var best *MemoryRegion
	for i := range regions {
		r := &regions[i]
		if !r.anonymous() || r.Size() < size {
			continue
		}
		if r.Size() == size {
			return r.Start, nil
		}
		if best == nil || r.Size() < best.Size() {
			best = r
		}
	}

	if best == nil {
		return 0, fmt.Errorf("no anonymous mapping of at least 0x%x bytes", size)
	}
	return best.Start, nil
}

func parseHex(s string) uint64 {
	if s == "0" {
		return 0
	}
	val, _ := strconv.ParseUint(s, 16, 64)
	return val
}

func parseDec(s string) uint64 {
	val, _ := strconv.ParseUint(s, 10, 64)
	return val
}
