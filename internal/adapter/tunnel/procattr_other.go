//go:build !linux && !windows

package tunnel

import "syscall"

// sysProcAttr puts the child in its own process group. Pdeathsig is not
// available off Linux.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}
