package process

import (
	"os"
	"syscall"
)

// IsProcessAlive checks if a process with the given PID is still running.
// It uses a signal-sending method that is cross-platform for Unix-like systems (macOS, Linux).
func IsProcessAlive(pid int) bool {
	// PID 0 or less is invalid.
	if pid <= 0 {
		return false
	}

	// Find the process. This doesn't fail on Unix if the process doesn't exist.
	process, err := os.FindProcess(pid)
	if err != nil {
		return false // Should not happen on Unix-like systems.
	}

	// On Unix, sending signal 0 to a process checks for its existence without actually sending a signal.
	// If the process exists and we have permission, err will be nil.
	// If the process exists but we don't have permission, err will be EPERM, but it's still alive.
	// If the process does not exist, err will be ESRCH.
	err = process.Signal(syscall.Signal(0))

	return err == nil || os.IsPermission(err)
}

// NewGroupAttr returns process attributes that start the child as the leader of a
// new session, and therefore of a new process group whose id equals its pid.
func NewGroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// SignalGroup delivers sig to every process in the group led by pgid.
// ESRCH (group already gone) is not reported as an error.
func SignalGroup(pgid int, sig syscall.Signal) error {
	if pgid <= 0 {
		return syscall.EINVAL
	}
	if err := syscall.Kill(-pgid, sig); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}

// GroupAlive reports whether any process in the group led by pgid still exists.
// Unreaped zombies count as members.
func GroupAlive(pgid int) bool {
	if pgid <= 0 {
		return false
	}
	err := syscall.Kill(-pgid, 0)
	return err == nil || err == syscall.EPERM
}
