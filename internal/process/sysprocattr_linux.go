//go:build linux

package process

import (
	"os/exec"
	"syscall"
)

// configureCmdSysProcAttr asks the kernel to send SIGTERM to the child if the
// supervisor dies without reaping it. The child stays in the supervisor's
// process group so terminal signals reach both.
func configureCmdSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
}
