//go:build !windows

package engine

import (
	"os/exec"
	"syscall"
)

// configureKill lanza el proceso en su propio grupo y al cancelar mata el grupo entero,
// soffice deja hijos que sobrevivirían a un kill del padre
func configureKill(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
