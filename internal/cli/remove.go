package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lu-zhengda/appsweep/internal/catalog"
	"github.com/lu-zhengda/appsweep/internal/engine"
	"github.com/lu-zhengda/appsweep/internal/history"
	"github.com/lu-zhengda/appsweep/internal/remover"
	"github.com/lu-zhengda/appsweep/internal/utils"
	"github.com/spf13/cobra"
)

// errRemovalIncomplete is returned after the failures have been reported,
// so the process exits non-zero.
var errRemovalIncomplete = errors.New("some files could not be removed")

const maxSuggestions = 3

var (
	removeYes    bool
	removeDryRun bool
)

var removeCmd = &cobra.Command{
	Use:     "remove <app-name>",
	Aliases: []string{"uninstall"},
	Short:   "Remove an application and its residual files",
	Example: "  appsweep remove \"Google Chrome\"\n  appsweep remove slack --dry-run",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemove(cmd.Context(), args[0])
	},
}

func init() {
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Skip confirmation prompts")
	removeCmd.Flags().BoolVar(&removeDryRun, "dry-run", false, "Show what would be removed without removing anything")
}

func runRemove(ctx context.Context, name string) error {
	e := buildEngine()

	plan, err := e.Inspect(ctx, name)
	if errors.Is(err, catalog.ErrNotFound) {
		reportNotFound(e.Catalog(), name)
		return err
	}
	if err != nil {
		return err
	}

	if jsonFlag && !removeDryRun && !shouldSkipConfirm(removeYes) {
		return fmt.Errorf("--json needs --yes or --dry-run, prompts cannot be answered")
	}

	if removeDryRun {
		if jsonFlag {
			return printJSON(buildRemoveJSON(plan, nil))
		}
		printPlan(plan)
		fmt.Printf("\n[DRY RUN] Would remove %d items (%s).\n", len(plan.Residuals)+1, utils.FormatSize(plan.Total))
		fmt.Println("[DRY RUN] No files were deleted.")
		return nil
	}

	rm := buildRemover()

	if !jsonFlag {
		printPlan(plan)
		printYoloWarning()
	}

	if !shouldSkipConfirm(removeYes) {
		if !stdinIsTerminal() {
			return fmt.Errorf("stdin is not a terminal; rerun with --yes to remove %q without prompting", plan.App.Name)
		}
		if !confirmAction("\nContinue with removal?") {
			fmt.Println("Cancelled.")
			return nil
		}
		if rm.IsRunning(ctx, plan.App.Name) &&
			!confirmAction(fmt.Sprintf("%q is running. Quit it?", plan.App.Name)) {
			fmt.Println("Quit the application before removing it.")
			return nil
		}
	}

	emit := printEvent
	if jsonFlag {
		emit = nil
	} else {
		fmt.Println()
	}
	report := rm.Run(ctx, plan.Request(), emit)
	recordRemoval(plan, report)

	if jsonFlag {
		if err := printJSON(buildRemoveJSON(plan, &report)); err != nil {
			return err
		}
	} else {
		printFreeSpace(filepath.Dir(plan.App.Path))
	}

	if len(report.Failed()) > 0 {
		if !jsonFlag {
			printFailures(report, fmt.Sprintf("appsweep remove %q", name))
		}
		return errRemovalIncomplete
	}
	return nil
}

func reportNotFound(cat *catalog.Catalog, name string) {
	fmt.Fprintf(os.Stderr, "Application %q not found.\n", name)
	if suggestions := cat.Suggest(name, maxSuggestions); len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "Did you mean: %s?\n", strings.Join(suggestions, ", "))
	}
	fmt.Fprintf(os.Stderr, "Use 'appsweep search %s' to look it up.\n", name)
}

// freedBytes sums the planned sizes of the paths that were deleted.
func freedBytes(plan engine.Plan, report remover.Report) int64 {
	sizes := map[string]int64{plan.App.Path: plan.App.Size}
	for _, r := range plan.Residuals {
		sizes[r.Path] = r.Size
	}
	var freed int64
	for _, o := range report.Outcomes {
		if o.OK() {
			freed += sizes[o.Path]
		}
	}
	return freed
}

// recordRemoval appends a completed app removal to the history file.
func recordRemoval(plan engine.Plan, report remover.Report) {
	recordHistory(history.Entry{
		Timestamp:  time.Now(),
		App:        plan.App.Name,
		BundleID:   plan.App.BundleID,
		Items:      report.Succeeded(),
		Failed:     len(report.Failed()),
		BytesFreed: freedBytes(plan, report),
		Method:     history.MethodUninstall,
	})
}

func recordHistory(e history.Entry) {
	if !currentConfig().History.Enabled {
		return
	}
	if err := history.New(historyPath()).Record(e); err != nil {
		currentLogger().Warn("failed to record history", "err", err)
	}
}
