//go:build windows

package agent

import (
	"os"
	"os/exec"
	"syscall"
)

// Process groups are a Unix concept; on Windows we fall back to
// killing the direct child only.
func setProcessGroup(_ *exec.Cmd) {}

func signalGroup(pid int, _ syscall.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func terminateSignal() syscall.Signal { return syscall.SIGTERM }
func killSignal() syscall.Signal      { return syscall.SIGKILL }
