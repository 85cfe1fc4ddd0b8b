package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/lu-zhengda/appsweep/internal/catalog"
	"github.com/lu-zhengda/appsweep/internal/config"
	"github.com/lu-zhengda/appsweep/internal/engine"
	"github.com/spf13/cobra"
)

var listMinSize string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed applications with their sizes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd.Context())
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Find installed applications whose name contains term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd.Context(), args[0])
	},
}

func init() {
	listCmd.Flags().StringVar(&listMinSize, "min-size", "", "Only show applications at least this large (e.g. 500MB, 1GB)")
}

func runList(ctx context.Context) error {
	var minSize int64
	if listMinSize != "" {
		n, err := config.ParseSize(listMinSize)
		if err != nil {
			return fmt.Errorf("invalid --min-size value %q: %w", listMinSize, err)
		}
		minSize = n
	}

	e := buildEngine()
	apps := filterMinSize(describe(ctx, e, e.Catalog().List()), minSize)

	if jsonFlag {
		return printJSON(buildAppsJSON("", apps))
	}

	fmt.Printf("Installed applications (%d)\n\n", len(apps))
	printApps(apps)
	return nil
}

func runSearch(ctx context.Context, query string) error {
	e := buildEngine()
	matches := catalog.Filter(e.Catalog().List(), query)
	matches = describe(ctx, e, matches)

	if jsonFlag {
		return printJSON(buildAppsJSON(query, matches))
	}

	if len(matches) == 0 {
		fmt.Printf("No applications found for %q.\n", query)
		return nil
	}

	fmt.Printf("Results for %q (%d found)\n\n", query, len(matches))
	printApps(matches)
	return nil
}

// describe sizes apps, showing a counter on stderr when it is a terminal.
func describe(ctx context.Context, e *engine.Engine, apps []catalog.App) []catalog.App {
	var onProgress func(engine.DescribeProgress)
	if !jsonFlag && stderrIsTerminal() && len(apps) > 0 {
		onProgress = func(p engine.DescribeProgress) {
			fmt.Fprintf(os.Stderr, "\rSizing applications... %d/%d", p.Done, p.Total)
		}
		defer fmt.Fprint(os.Stderr, "\r\033[K")
	}
	return e.Describe(ctx, apps, onProgress)
}

func filterMinSize(apps []catalog.App, minSize int64) []catalog.App {
	if minSize <= 0 {
		return apps
	}
	kept := make([]catalog.App, 0, len(apps))
	for _, a := range apps {
		if a.Size >= minSize {
			kept = append(kept, a)
		}
	}
	return kept
}
