package tunnel

import "syscall"

// sysProcAttr returns no special attributes on Windows; process groups and
// Pdeathsig are POSIX concepts.
func sysProcAttr() *syscall.SysProcAttr {
	return nil
}
