//go:build windows

package engine

import "os/exec"

func configureKill(cmd *exec.Cmd) {}
