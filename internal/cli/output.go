package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lu-zhengda/appsweep/internal/catalog"
	"github.com/lu-zhengda/appsweep/internal/engine"
	"github.com/lu-zhengda/appsweep/internal/remover"
	"github.com/lu-zhengda/appsweep/internal/utils"
	"golang.org/x/sys/unix"
)

const nameWidth = 40

func printApps(apps []catalog.App) {
	for i, app := range apps {
		fmt.Printf("  %3d. %-*s %s\n", i+1, nameWidth, app.Name, utils.FormatSize(app.Size))
	}
}

func printPlan(plan engine.Plan) {
	fmt.Printf("Remove: %s\n\n", plan.App.Name)
	fmt.Printf("  Application: %s (%s)\n", plan.App.Path, utils.FormatSize(plan.App.Size))
	if plan.App.BundleID != "" {
		fmt.Printf("  Bundle ID:   %s\n", plan.App.BundleID)
	}

	if len(plan.Residuals) == 0 {
		fmt.Println("\n  No residual files found.")
	} else {
		fmt.Println("\n  Residual files:")
		for _, r := range plan.Residuals {
			fmt.Printf("    - %s (%s)\n", r.Path, utils.FormatSize(r.Size))
		}
	}
	for _, p := range plan.Excluded {
		fmt.Printf("    ~ %s (excluded by config)\n", p)
	}

	fmt.Printf("\n  Total to remove: %s\n", utils.FormatSize(plan.Total))
}

// printEvent renders the text lines of a removal's progress stream.
func printEvent(e remover.Event) {
	if e.Kind == remover.EventLine {
		fmt.Println(e.Line)
	}
}

// printFailures reports failed deletions on stderr with a hint to retry
// with elevated privileges.
func printFailures(report remover.Report, retry string) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Errors:")
	for _, o := range report.Failed() {
		fmt.Fprintf(os.Stderr, "  - %s: %v\n", o.Path, o.Err)
	}
	fmt.Fprintln(os.Stderr)
	if report.NeedsPrivilege() {
		fmt.Fprintln(os.Stderr, "Hint: some files need administrator privileges.")
	} else {
		fmt.Fprintln(os.Stderr, "Hint: some files may need administrator privileges.")
	}
	fmt.Fprintf(os.Stderr, "Try: sudo %s\n", retry)
}

// printFreeSpace reports the space left on the volume holding path.
func printFreeSpace(path string) {
	free, err := diskFree(path)
	if err != nil {
		currentLogger().Debug("free space unavailable", "path", path, "err", err)
		return
	}
	fmt.Printf("Free space: %s\n", utils.FormatSize(free))
}

// diskFree returns the available disk space in bytes for the given path.
func diskFree(path string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("failed to stat filesystem: %w", err)
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}

func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}

// confirmAction prompts on stdout and reads one line from stdin.
// Only "y" and "yes" confirm.
func confirmAction(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	switch strings.ToLower(strings.TrimSpace(readLine(stdin))) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// readLine reads up to the next newline without buffering past it, so
// consecutive prompts each get their own answer.
func readLine(r io.Reader) string {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if err != nil {
			break
		}
	}
	return sb.String()
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
