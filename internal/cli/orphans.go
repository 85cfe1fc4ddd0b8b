package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/lu-zhengda/appsweep/internal/history"
	"github.com/lu-zhengda/appsweep/internal/remover"
	"github.com/lu-zhengda/appsweep/internal/residual"
	"github.com/lu-zhengda/appsweep/internal/utils"
	"github.com/spf13/cobra"
)

var (
	orphansRemove bool
	orphansYes    bool
)

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Find leftovers of applications that are no longer installed",
	Long:  "Lists preference files, caches and support data whose application is no longer\ninstalled. With --remove they are deleted after confirmation.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOrphans(cmd.Context())
	},
}

func init() {
	orphansCmd.Flags().BoolVar(&orphansRemove, "remove", false, "Delete the orphaned files")
	orphansCmd.Flags().BoolVarP(&orphansYes, "yes", "y", false, "Skip confirmation prompt")
}

func runOrphans(ctx context.Context) error {
	e := buildEngine()

	apps := e.Identify(ctx, e.Catalog().List())
	names := make([]string, 0, len(apps))
	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		names = append(names, a.Name)
		if a.BundleID != "" {
			ids = append(ids, a.BundleID)
		}
	}

	orphans, err := e.Finder().FindOrphans(ctx, names, ids)
	if err != nil {
		return fmt.Errorf("failed to scan for orphans: %w", err)
	}

	paths := make([]string, 0, len(orphans))
	for _, o := range orphans {
		paths = append(paths, o.Path)
	}
	sizes := utils.TreeSizes(paths, currentConfig().Workers())
	var total int64
	for _, p := range paths {
		total += sizes[p]
	}

	if !orphansRemove {
		if jsonFlag {
			return printJSON(buildOrphansJSON(orphans, sizes, nil))
		}
		printOrphans(orphans, sizes, total)
		return nil
	}

	if len(orphans) == 0 {
		if jsonFlag {
			return printJSON(buildOrphansJSON(nil, sizes, nil))
		}
		fmt.Println("No orphaned files found.")
		return nil
	}

	if !jsonFlag {
		printOrphans(orphans, sizes, total)
		printYoloWarning()
	}
	if !shouldSkipConfirm(orphansYes) {
		if jsonFlag || !stdinIsTerminal() {
			return fmt.Errorf("refusing to prompt without a terminal; rerun with --yes")
		}
		if !confirmAction(fmt.Sprintf("\nRemove %d orphaned items (%s)?", len(orphans), utils.FormatSize(total))) {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	var emit func(remover.Event)
	if !jsonFlag {
		fmt.Println()
		emit = printEvent
	}
	// No app name: there is no running application to quit.
	report := buildRemover().Run(ctx, remover.Request{Residuals: paths}, emit)

	var freed int64
	for _, o := range report.Outcomes {
		if o.OK() {
			freed += sizes[o.Path]
		}
	}
	recordHistory(history.Entry{
		Timestamp:  time.Now(),
		App:        "orphans",
		Items:      report.Succeeded(),
		Failed:     len(report.Failed()),
		BytesFreed: freed,
		Method:     history.MethodOrphans,
	})

	if jsonFlag {
		if err := printJSON(buildOrphansJSON(orphans, sizes, &report)); err != nil {
			return err
		}
	}
	if len(report.Failed()) > 0 {
		if !jsonFlag {
			printFailures(report, "appsweep orphans --remove")
		}
		return errRemovalIncomplete
	}
	return nil
}

func printOrphans(orphans []residual.Orphan, sizes map[string]int64, total int64) {
	if len(orphans) == 0 {
		fmt.Println("No orphaned files found.")
		return
	}

	fmt.Printf("Orphaned files (%d)\n\n", len(orphans))
	for _, o := range orphans {
		fmt.Printf("  %-50s %10s  %s\n", truncatePath(o.Path, 50), utils.FormatSize(sizes[o.Path]), o.Description)
	}
	fmt.Printf("\nTotal: %s\n", utils.FormatSize(total))
}
