// Package process checks whether an application is running and asks it to
// quit. Both operations are best-effort.
package process

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// quitTimeout bounds how long the osascript invocation may take.
const quitTimeout = 10 * time.Second

// Controller is the process-table and inter-application messaging surface
// the remover depends on.
type Controller interface {
	IsRunning(ctx context.Context, appName string) bool
	RequestQuit(ctx context.Context, appName string) error
}

// CmdlineLister returns the command lines of running processes.
type CmdlineLister func(ctx context.Context) ([]string, error)

// System talks to the real process table and Apple Events.
type System struct {
	list CmdlineLister
	run  func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewSystem returns a Controller backed by gopsutil and osascript.
func NewSystem() *System {
	return &System{list: listCmdlines, run: runCombined}
}

func listCmdlines(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	cmdlines := make([]string, 0, len(procs))
	for _, p := range procs {
		cmd, err := p.CmdlineWithContext(ctx)
		if err != nil || cmd == "" {
			continue
		}
		cmdlines = append(cmdlines, cmd)
	}
	return cmdlines, nil
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// IsRunning reports whether any process command line references the
// application's bundle filename ("<appName>.app"). Listing failures read as
// not running.
func (s *System) IsRunning(ctx context.Context, appName string) bool {
	cmdlines, err := s.list(ctx)
	if err != nil {
		return false
	}
	return anyReferences(cmdlines, appName+".app")
}

func anyReferences(cmdlines []string, bundleFile string) bool {
	for _, c := range cmdlines {
		if strings.Contains(c, bundleFile) {
			return true
		}
	}
	return false
}

// QuitScript is the AppleScript sent to ask appName to quit.
func QuitScript(appName string) string {
	return fmt.Sprintf(`tell application %q to quit`, appName)
}

// RequestQuit asks appName to quit via osascript. It does not wait for the
// application to exit.
func (s *System) RequestQuit(ctx context.Context, appName string) error {
	ctx, cancel := context.WithTimeout(ctx, quitTimeout)
	defer cancel()

	if out, err := s.run(ctx, "osascript", "-e", QuitScript(appName)); err != nil {
		return fmt.Errorf("failed to ask %s to quit: %w (%s)", appName, err, strings.TrimSpace(string(out)))
	}
	return nil
}
