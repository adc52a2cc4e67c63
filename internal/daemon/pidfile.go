// Package daemon tracks the background server started by
// 'workbench serve --daemon' through a PID file under state_dir.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PIDFile records the PID of a detached server process so later
// invocations can find, signal, or supersede it.
type PIDFile struct {
	Path string
}

// NewPIDFile wraps the given path. Nothing is touched on disk until
// Write or Read is called.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write records the current process's PID.
func (p *PIDFile) Write() error {
	return p.WritePID(os.Getpid())
}

// WritePID records an arbitrary PID, typically a freshly started child.
func (p *PIDFile) WritePID(pid int) error {
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read returns the recorded PID. A file that exists but does not hold
// a number is an error distinct from a missing file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	return pid, nil
}

// Remove deletes the file. Callers treat a stale file as
// "not running", so removal is cleanup, not correctness.
func (p *PIDFile) Remove() error {
	return os.Remove(p.Path)
}
