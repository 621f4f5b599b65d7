package tunnel

import "syscall"

// sysProcAttr puts the child in its own process group. Pdeathsig is a
// Linux-only safety net: if tunneltap dies unexpectedly, the kernel sends
// SIGTERM to the direct child.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
