//go:build unix

package shell

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup runs the command in its own process group so the whole tree
// (the shell and its children) is killed on cancellation.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := killProcessGroup(cmd)
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}

// killProcessGroup kills every process left in the command process group.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
}

// reapProcessGroup kills the processes the shell left behind (e.g. background jobs).
func reapProcessGroup(cmd *exec.Cmd) error {
	err := killProcessGroup(cmd)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
