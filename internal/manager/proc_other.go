//go:build !unix

package manager

import (
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

// Non-unix platforms have no graceful signal; termination is immediate.
func terminate(p *os.Process) error { return p.Kill() }

func kill(p *os.Process) error { return p.Kill() }

func exitSignal(ps *os.ProcessState) string { return "" }
