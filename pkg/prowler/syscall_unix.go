package prowler

import (
	"golang.org/x/sys/unix"
)

func readMemory(pid int, data []byte, ptr uintptr) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	localIov := []unix.Iovec{
		{
			Base: &data[0],
			Len:  uint64(len(data)),
		},
	}

	remoteIov := []unix.RemoteIovec{
		{
			Base: ptr,
			Len:  len(data),
		},
	}

	return unix.ProcessVMReadv(pid, localIov, remoteIov, 0)
}

func writeMemory(pid int, data []byte, ptr uintptr) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	localIov := []unix.Iovec{
		{
			Base: &data[0],
			Len:  uint64(len(data)),
		},
	}

	remoteIov := []unix.RemoteIovec{
		{
			Base: ptr,
			Len:  len(data),
		},
	}

	return unix.ProcessVMWritev(pid, localIov, remoteIov, 0)
}

func alive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}
