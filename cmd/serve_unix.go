//go:build !windows

package cmd

import (
	"os"
	"os/exec"
	"syscall"
)

// setDaemonAttrs puts the re-execed server in its own session so it
// survives the launching terminal.
func setDaemonAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// shutdownSignals lists the signals that trigger a graceful server stop.
func shutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// sigTERM is the polite stop signal used by 'serve stop'.
func sigTERM() syscall.Signal { return syscall.SIGTERM }

// sigKILL is the escalation when the server ignores sigTERM.
func sigKILL() syscall.Signal { return syscall.SIGKILL }
