//go:build !unix

package toolchain

import "runtime"

func hostInfo() (HostInfo, error) {
	return HostInfo{Machine: runtime.GOARCH, OSName: runtime.GOOS}, nil
}
