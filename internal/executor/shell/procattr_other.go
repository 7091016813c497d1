//go:build !unix

package shell

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

func reapProcessGroup(cmd *exec.Cmd) error { return nil }
