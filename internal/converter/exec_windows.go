//go:build windows

package converter

import (
	"os/exec"
	"syscall"
)

// hideWindow keeps the console window of the converter from flashing up.
func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}
