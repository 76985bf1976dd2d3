//go:build unix

package toolchain

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func hostInfo() (HostInfo, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return HostInfo{Machine: runtime.GOARCH, OSName: runtime.GOOS}, nil
	}
	return HostInfo{
		Machine:   unix.ByteSliceToString(u.Machine[:]),
		OSName:    unix.ByteSliceToString(u.Sysname[:]),
		OSVersion: unix.ByteSliceToString(u.Version[:]),
	}, nil
}
