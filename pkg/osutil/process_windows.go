//go:build windows

package osutil

import (
	"os"
	"os/exec"
)

// SetProcessGroup is a no-op on Windows; there is no Setpgid equivalent for
// foreground processes.
func SetProcessGroup(_ *exec.Cmd) {}

// SetProcessGroupKill installs a cancel function that terminates the main
// process. Children may outlive it since Windows lacks Unix process groups.
func SetProcessGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Kill)
	}
}
