package utils

import (
	"fmt"
	"github.com/shirou/gopsutil/v3/process"
	"os"
	"path/filepath"
	"strings"
)

func CheckPid(pid string) bool {
	path := filepath.Join("/proc", pid)
	_, err := os.Stat(path)
	return err == nil
}

// FindPid returns the pid of the only running process whose name contains
// name, ignoring case.
func FindPid(name string) (int, error) {
	procs, err := process.Processes()
	if err != nil {
		return 0, err
	}

	var found []int32
	needle := strings.ToLower(name)
	for _, p := range procs {
		pname, err := p.Name()
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(pname), needle) {
			found = append(found, p.Pid)
		}
	}

	switch len(found) {
	case 0:
		return 0, fmt.Errorf("no process named %q", name)
	case 1:
		return int(found[0]), nil
	}
	return 0, fmt.Errorf("%d processes named %q: %v, pass a pid instead", len(found), name, found)
}

// ProcessName returns the name of pid, or "?" if it cannot be read.
func ProcessName(pid int) string {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "?"
	}
	name, err := p.Name()
	if err != nil {
		return "?"
	}
	return name
}
